package cli

import (
	"fmt"
	"io"
	"iter"

	"github.com/liangyou/vodka/pkg/models"
)

// ProgressPrinter 返回一个进度观察者，把下载进度以单行刷新的形式写入 w。
func ProgressPrinter(w io.Writer) func(iter.Seq[models.Progress]) {
	return func(seq iter.Seq[models.Progress]) {
		printed := false
		lastPercent := -1
		for p := range seq {
			line, percent := formatProgress(p)
			if percent >= 0 && percent == lastPercent {
				continue
			}
			lastPercent = percent
			fmt.Fprintf(w, "\r%s", line)
			printed = true
		}
		if printed {
			fmt.Fprintln(w)
		}
	}
}

func formatProgress(p models.Progress) (string, int) {
	if p.TotalBytes <= 0 {
		return fmt.Sprintf("Downloading... %s", formatBytes(p.CompletedBytes)), -1
	}
	percent := int(p.CompletedBytes * 100 / p.TotalBytes)
	return fmt.Sprintf("Downloading... %3d%% (%s / %s)", percent, formatBytes(p.CompletedBytes), formatBytes(p.TotalBytes)), percent
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
