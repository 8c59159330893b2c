package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/haixuanTao/wgpu-compute-tutorials/detector"
)

func detectCmd() *cli.Command {
	var jsonOut bool

	return &cli.Command{
		Name:  "detect",
		Usage: "Probe the GPU and print its capabilities",
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the full report as JSON",
				Destination: &jsonOut,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := loadConfig()
			applyLogConfig(c, cfg)

			rep := detector.Probe()
			if jsonOut {
				s, err := rep.JSON()
				if err != nil {
					return err
				}
				fmt.Println(s)
			} else {
				printReport(rep)
			}
			if !rep.Available {
				return cli.Exit("no compute-capable GPU: "+rep.Reason, 1)
			}
			return nil
		},
	}
}

func printReport(rep *detector.Report) {
	host := fmt.Sprintf("%s/%s, %d CPUs", rep.Host.OS, rep.Host.Arch, rep.Host.NumCPU)
	if len(rep.Host.CPUFeatures) > 0 {
		host += " (" + strings.Join(rep.Host.CPUFeatures, ", ") + ")"
	}

	if !rep.Available {
		fmt.Println("GPU: unavailable")
		if rep.Reason != "" {
			fmt.Printf("Reason: %s\n", rep.Reason)
		}
		fmt.Printf("Host: %s\n", host)
		return
	}

	fmt.Printf("GPU: %s (%s, %s)\n", rep.Name, rep.Backend, rep.AdapterType)
	if rep.Driver != "" {
		fmt.Printf("Driver: %s\n", rep.Driver)
	}
	fmt.Printf("Recommended workgroup: %dx%dx%d\n",
		rep.Recommended.WorkgroupX, rep.Recommended.WorkgroupY, rep.Recommended.WorkgroupZ)
	fmt.Printf("Max invocations per workgroup: %d\n", rep.Limits.MaxComputeInvocationsPerWorkgroup)
	fmt.Printf("Max workgroups per dimension: %d\n", rep.Limits.MaxComputeWorkgroupsPerDimension)
	fmt.Printf("Max storage binding: %d bytes\n", rep.Limits.MaxStorageBufferBindingSize)
	if len(rep.Features) > 0 {
		fmt.Printf("Features: %s\n", strings.Join(rep.Features, ", "))
	}
	fmt.Printf("Host: %s\n", host)
}
