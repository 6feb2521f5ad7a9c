// Command mkimg builds the artifacts the kernel boots from: a cpio
// ramdisk image (a skeleton directory tree plus a generated boot.toml
// manifest), and small inspection/lint utilities used while preparing
// one. Generalizes mkfs's single-purpose "copy a skeleton directory
// into a disk image" tool from a fixed on-disk filesystem format to
// the cpio/TOML pair this kernel actually boots from.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/tools/imports"

	"config"
	"cpio"
	"elf64"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mkimg",
		Short:         "Build and inspect kernel boot images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCpioCmd(), newElfInfoCmd(), newLintCmd())
	return root
}

func newCpioCmd() *cobra.Command {
	var skelDir, manifestPath, outPath, cpuProfile string

	cmd := &cobra.Command{
		Use:   "cpio",
		Short: "Pack a skeleton directory and boot manifest into a cpio ramdisk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cpuProfile != "" {
				f, err := os.Create(cpuProfile)
				if err != nil {
					return fmt.Errorf("mkimg: creating cpu profile: %w", err)
				}
				defer f.Close()
				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("mkimg: starting cpu profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}
			return buildCpio(skelDir, manifestPath, outPath)
		},
	}
	cmd.Flags().StringVar(&skelDir, "skel", "", "host directory tree to pack (required)")
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "boot.toml to embed (defaults to built-in config)")
	cmd.Flags().StringVar(&outPath, "out", "ramdisk.cpio", "output ramdisk path")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "write a pprof CPU profile of the packing step to this path")
	cmd.MarkFlagRequired("skel")
	return cmd
}

// buildCpio walks skelDir, appends every regular file as a cpio entry,
// and adds a generated or user-supplied boot.toml at the archive root.
func buildCpio(skelDir, manifestPath, outPath string) error {
	cfg, err := config.LoadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("mkimg: %w", err)
	}
	manifest, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("mkimg: marshaling boot manifest: %w", err)
	}

	entries := []cpio.Entry{{Pathname: "boot.toml", Content: manifest, Mode: 0o644}}

	err = filepath.WalkDir(skelDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(skelDir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, cpio.Entry{
			Pathname: filepath.ToSlash(rel),
			Content:  content,
			Mode:     uint32(info.Mode().Perm()) | 0o100000, // S_IFREG
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("mkimg: walking %s: %w", skelDir, err)
	}

	if err := os.WriteFile(outPath, cpio.Serialize(entries), 0o644); err != nil {
		return fmt.Errorf("mkimg: writing %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s (%d entries)\n", outPath, len(entries))
	return nil
}

func newElfInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "elf-info <binary>",
		Short: "Print the PT_LOAD segments of an ELF64 AArch64 executable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("mkimg: %w", err)
			}
			if err := elf64.Validate(raw); err != nil {
				return fmt.Errorf("mkimg: %w", err)
			}
			img, eerr := elf64.Load(raw)
			if eerr != 0 {
				return fmt.Errorf("mkimg: parsing %s: %v", args[0], eerr)
			}
			fmt.Printf("entry: 0x%x\n", img.Entry)
			for i, seg := range img.Segments {
				fmt.Printf("segment %d: vaddr=0x%x memsz=0x%x filesz=0x%x flags=%03b\n",
					i, seg.VirtAddr, seg.MemSize, seg.FileSize, seg.Flags)
			}
			return nil
		},
	}
}

func newLintCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report Go source files under dir that are not gofmt/goimports clean",
		RunE: func(cmd *cobra.Command, args []string) error {
			return lintTree(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "root directory to walk")
	return cmd
}

func lintTree(dir string) error {
	var dirty []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		formatted, err := imports.Process(path, src, nil)
		if err != nil {
			dirty = append(dirty, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		if string(formatted) != string(src) {
			dirty = append(dirty, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mkimg: walking %s: %w", dir, err)
	}
	if len(dirty) == 0 {
		fmt.Println("all files clean")
		return nil
	}
	for _, path := range dirty {
		fmt.Println(path)
	}
	return fmt.Errorf("%d file(s) not gofmt/goimports clean", len(dirty))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
