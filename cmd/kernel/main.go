// Command kernel is the hosted entrypoint: it loads a boot manifest
// and an initial ramdisk image from disk, stands up a console and an
// optional root block device, and runs the kernel bootstrap sequence
// to completion. Grounded on dh-cli's cmd/dhg main.go (a cobra root
// command delegating to an internal package, errors reported on
// stderr with a non-zero exit).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boot"
	"config"
	"defs"
	"driver"
)

// stdioConsole adapts the process's stdin/stdout to driver.CharDevice,
// standing in for the real mini-UART on hosted runs.
type stdioConsole struct{}

func (stdioConsole) Read(buf []byte) (int, defs.Err_t) {
	n, err := os.Stdin.Read(buf)
	if err != nil {
		return 0, 0
	}
	return n, 0
}

func (stdioConsole) Write(buf []byte) (int, defs.Err_t) {
	n, err := os.Stdout.Write(buf)
	if err != nil {
		return n, defs.EIO
	}
	return n, 0
}

func newRootCmd() *cobra.Command {
	var configPath, ramdiskPath, rootDiskPath string

	cmd := &cobra.Command{
		Use:           "kernel",
		Short:         "Boot the kernel against a ramdisk image",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, ramdiskPath, rootDiskPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to boot.toml (defaults to built-in config)")
	cmd.Flags().StringVar(&ramdiskPath, "ramdisk", "", "path to a cpio initial ramdisk image")
	cmd.Flags().StringVar(&rootDiskPath, "root-disk", "", "path to a flat disk image backing the root block device")
	return cmd
}

func run(configPath, ramdiskPath, rootDiskPath string) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("kernel: %w", err)
	}

	var rootDisk driver.BlockDevice
	if rootDiskPath != "" {
		image, err := os.ReadFile(rootDiskPath)
		if err != nil {
			return fmt.Errorf("kernel: reading root disk image: %w", err)
		}
		rootDisk = driver.NewMemBlockDevice(image, 512)
	}

	k := boot.New(cfg, stdioConsole{}, rootDisk)

	if ramdiskPath != "" {
		archive, err := os.ReadFile(ramdiskPath)
		if err != nil {
			return fmt.Errorf("kernel: reading ramdisk: %w", err)
		}
		if err := k.LoadRamdisk(archive); err != nil {
			return fmt.Errorf("kernel: %w", err)
		}
	}

	if err := k.LoadInit(); err != nil {
		return fmt.Errorf("kernel: %w", err)
	}

	k.Run()
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
