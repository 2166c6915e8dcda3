// Package media はスライドのメディアURLを画像・動画に分類する。
package media

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hitoshi/storyslide/internal/model"
)

var (
	imageExtensions = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}, "gif": {}}
	videoExtensions = map[string]struct{}{"mp4": {}, "avi": {}, "mov": {}, "webm": {}}

	youtubePattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?(youtube\.com|youtu\.be)/(?:watch\?v=)?(.+)`)
)

// youtubeEmbedBase はYouTube埋め込みプレイヤーのベースURL。
const youtubeEmbedBase = "https://www.youtube.com/embed/"

// Classify はURLからメディア種別を判定する。
// 拡張子による判定を先に行い、該当しない場合にのみYouTubeパターンを照合する。
func Classify(rawURL string) model.MediaType {
	ext := extension(rawURL)
	if _, ok := imageExtensions[ext]; ok {
		return model.MediaTypeImage
	}
	if _, ok := videoExtensions[ext]; ok {
		return model.MediaTypeVideo
	}
	if youtubePattern.MatchString(rawURL) {
		return model.MediaTypeVideo
	}
	return model.MediaTypeUnknown
}

// extension はクエリ文字列を除いたURLの最後のドット以降を小文字で返す。
// ドットを含まない場合はURL全体が返るが、既知の拡張子と一致することはない。
func extension(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		rawURL = rawURL[:i]
	}
	if i := strings.LastIndexByte(rawURL, '.'); i >= 0 {
		rawURL = rawURL[i+1:]
	}
	return strings.ToLower(rawURL)
}

// IsYouTube はURLがYouTubeのホストを指しているかを返す。
func IsYouTube(rawURL string) bool {
	return strings.Contains(rawURL, "youtube.com") || strings.Contains(rawURL, "youtu.be")
}

// YouTubeEmbedURL はYouTubeの視聴URLから自動再生・ミュートの埋め込みURLを生成する。
// 動画IDは "v=" の後ろ、なければパスの最後のセグメントから取り出す。
func YouTubeEmbedURL(rawURL string) string {
	var id string
	if i := strings.Index(rawURL, "v="); i >= 0 {
		id = rawURL[i+2:]
		if j := strings.IndexByte(id, '&'); j >= 0 {
			id = id[:j]
		}
	} else {
		id = rawURL
		if j := strings.IndexByte(id, '?'); j >= 0 {
			id = id[:j]
		}
		id = strings.TrimRight(id, "/")
		if j := strings.LastIndexByte(id, '/'); j >= 0 {
			id = id[j+1:]
		}
	}
	return youtubeEmbedBase + id + "?autoplay=1&mute=1"
}

// DownloadFileName はダウンロード時の保存ファイル名を返す。
// 見出しが空の場合は "slide_<番号>" を使い、番号は1始まり。
func DownloadFileName(heading string, index int, mediaType model.MediaType) string {
	name := strings.TrimSpace(heading)
	if name == "" {
		name = fmt.Sprintf("slide_%d", index+1)
	}
	ext := "jpg"
	if mediaType == model.MediaTypeVideo {
		ext = "mp4"
	}
	return name + "." + ext
}
