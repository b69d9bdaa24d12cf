package cli

import (
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/leoric/kbai/pkg/infra/device"
	"github.com/leoric/kbai/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdDevice(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "Show the compute backend selected for model execution",
		Action: func(ctx context.Context, c *cli.Command) error {
			selector := usecase.NewDeviceSelector(device.NewProber())
			kind := selector.Select(ctx)

			color.New(color.FgHiGreen).Fprintf(w, "Using device: %s\n", kind.Description())
			return nil
		},
	}
}
