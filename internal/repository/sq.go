package repository

import "github.com/Masterminds/squirrel"

// sqBuilder はPostgreSQL用のプレースホルダー（$1, $2, ...）を使うステートメントビルダー。
var sqBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
