package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"lacquer/internal/config"
	"lacquer/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

var statfs statfsFunc = realStatfs

// minFreeBytes is the smallest working volume a run can finish on. Chunk
// intermediates are decompressed PCM, so an hour-long episode needs several
// hundred megabytes of scratch space before the encoder reclaims it.
const minFreeBytes = 1 << 30

// CheckDiskSpace verifies the volume holding path has room for chunk
// intermediates.
func CheckDiskSpace(path string) Result {
	const name = "Free disk space"
	total, free, err := statfs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free of %s on %s", humanBytes(int64(free)), humanBytes(int64(total)), path)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s; need at least %s", detail, humanBytes(minFreeBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckEngineRuns executes the engine binary with -version, proving the
// binary actually starts rather than merely existing on disk. Broken
// dynamic linking and wrong-architecture installs fail here, not mid-run.
func CheckEngineRuns(ctx context.Context, binary string) Result {
	const name = "FFmpeg runtime"

	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(checkCtx, binary, "-version").Output()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s failed to run (%v)", binary, err)}
	}
	detail := firstLine(string(output))
	if detail == "" {
		detail = "responds to -version"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the external binaries a mastering run needs.
// The doctor command and the master command's preflight both use this to
// avoid duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var ffmpegOverride, ffprobeOverride string
	if cfg != nil {
		ffmpegOverride = cfg.Tools.FFmpegBinary
		ffprobeOverride = cfg.Tools.FFprobeBinary
	}
	ffmpegBinary := deps.ResolveFFmpegPath(ffmpegOverride)
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for every mastering pass",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobePath(ffprobeOverride, ffmpegBinary),
			Description: "Required for media inspection",
		},
	}
	return deps.CheckBinaries(requirements)
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	value := float64(v) / float64(div)
	return fmt.Sprintf("%.1f %ciB", value, "KMGTPEZY"[exp])
}
