package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/haixuanTao/wgpu-compute-tutorials/kernels"
)

func kernelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "kernels",
		Usage: "List registered kernels",
		Action: func(ctx context.Context, c *cli.Command) error {
			for _, name := range kernels.Names() {
				k, err := kernels.Get(name)
				if err != nil {
					return err
				}
				marker := " "
				if k.Reference != nil {
					marker = "*"
				}
				fmt.Printf("%s %-10s %s\n", marker, k.Name, k.Doc)
			}
			fmt.Println("\n* has a CPU reference usable with --verify")
			return nil
		},
	}
}
