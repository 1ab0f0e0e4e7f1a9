package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFmpegPath picks the ffmpeg binary to execute. An explicit
// override always wins; otherwise the name resolves through PATH.
func ResolveFFmpegPath(override string) string {
	if binary := strings.TrimSpace(override); binary != "" {
		return binary
	}
	return "ffmpeg"
}

// ResolveFFprobePath picks the ffprobe binary to inspect media with.
//
// An explicit override always wins. Otherwise, when the ffmpeg override
// points into a custom install, the ffprobe sitting next to it is preferred
// over whatever PATH resolves; the two tools ship as a pair and reports from
// mismatched builds disagree on stream details.
func ResolveFFprobePath(override, ffmpegBinary string) string {
	if binary := strings.TrimSpace(override); binary != "" {
		return binary
	}

	if ffmpeg := strings.TrimSpace(ffmpegBinary); ffmpeg != "" && ffmpeg != "ffmpeg" {
		if resolved, err := exec.LookPath(ffmpeg); err == nil {
			if candidate, ok := siblingTool(resolved, "ffprobe"); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					return candidate
				}
			}
		}
	}

	return "ffprobe"
}

func siblingTool(binaryPath, name string) (string, bool) {
	if binaryPath == "" {
		return "", false
	}
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(binaryPath), name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
