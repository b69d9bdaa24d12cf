package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/schollz/progressbar/v3"
)

// Bar draws a terminal progress bar for a download
type Bar struct {
	w           io.Writer
	description string
	bar         *progressbar.ProgressBar
}

var _ interfaces.ProgressSink = (*Bar)(nil)

// NewBar creates a progress bar writing to w
func NewBar(w io.Writer, description string) *Bar {
	return &Bar{
		w:           w,
		description: description,
	}
}

// Start creates the bar. A negative total shows a spinner instead.
func (x *Bar) Start(total int64) {
	x.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(x.w),
		progressbar.OptionSetDescription(x.description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(x.w)
		}),
	)
}

func (x *Bar) Advance(n int64) {
	if x.bar == nil {
		return
	}
	_ = x.bar.Add64(n)
}

func (x *Bar) Finish() {
	if x.bar == nil {
		return
	}
	_ = x.bar.Finish()
}
