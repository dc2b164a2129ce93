package domain

import (
	"path"
	"strings"
)

// videoExtensions is the set of container extensions recognized as video.
// Recognition does not imply the browser can play the file; see
// BrowserPlayable.
var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mkv":  {},
	".mov":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
	".m4v":  {},
	".3gp":  {},
}

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".m4v":  "video/x-m4v",
	".3gp":  "video/3gpp",
}

func fileExt(name string) string {
	return strings.ToLower(path.Ext(name))
}

// IsVideoFile reports whether the file name carries a recognized video
// container extension.
func IsVideoFile(name string) bool {
	_, ok := videoExtensions[fileExt(name)]
	return ok
}

// BrowserPlayable reports whether the container can be handed to a browser
// <video> element without transcoding. Only MP4 and WebM qualify.
func BrowserPlayable(name string) bool {
	ext := fileExt(name)
	return ext == ".mp4" || ext == ".webm"
}

// ContentTypeFor returns the MIME type for a video file name, falling back
// to application/octet-stream for unknown extensions.
func ContentTypeFor(name string) string {
	if ct, ok := contentTypes[fileExt(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}
