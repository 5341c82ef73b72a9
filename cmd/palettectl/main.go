// Command palettectl inspects configured palettes from the terminal and
// administers a running server.
//
// Usage:
//
//	palettectl get [--config path] [--palette name] [--total t] x...
//	palettectl preview [--config path] [--palette name] [--step s]
//	palettectl clear-cache [--server url]
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lumastrip/server/internal/config"
	"github.com/lumastrip/server/pkg/palette"
	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "get":
		err = runGet(os.Args[2:], os.Stdout)
	case "preview":
		err = runPreview(os.Args[2:])
	case "clear-cache":
		err = runClearCache(os.Args[2:], os.Stdout)
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "palettectl: unknown command %q\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "palettectl: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: palettectl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  get          resolve coordinates against a configured palette")
	fmt.Fprintln(w, "  preview      draw a palette across the terminal")
	fmt.Fprintln(w, "  clear-cache  drop a running server's strip and query caches")
}

// loadPalette builds the named palette from config, or the default palette
// when name is empty.
func loadPalette(configPath, name string) (string, *palette.Palette, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		name = cfg.DefaultPalette
	}
	def, ok := cfg.Palettes.Defs[name]
	if !ok {
		return "", nil, fmt.Errorf("palette %q not found (have %s)", name, strings.Join(cfg.PaletteNames(), ", "))
	}
	p, err := def.Build()
	if err != nil {
		return "", nil, fmt.Errorf("palette %q: %w", name, err)
	}
	return name, p, nil
}

func runGet(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("get", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "config/server.yaml", "Path to configuration file")
	name := fs.StringP("palette", "n", "", "Palette name (default from config)")
	total := fs.Float64P("total", "t", 0, "Domain size for autoscaled palettes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("get: at least one coordinate is required")
	}

	_, p, err := loadPalette(*configPath, *name)
	if err != nil {
		return err
	}

	for _, arg := range fs.Args() {
		x, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("get: invalid coordinate %q", arg)
		}

		var c palette.Color
		if fs.Changed("total") {
			c, err = p.GetIn(x, *total)
		} else {
			c, err = p.Get(x)
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", arg, err)
		}

		r, g, b := c.Bytes()
		fmt.Fprintf(out, "%s\t%s\t%d %d %d\n", arg, c.Hex(), r, g, b)
	}
	return nil
}

func runClearCache(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("clear-cache", pflag.ContinueOnError)
	server := fs.StringP("server", "s", "http://localhost:8080", "Base URL of a running server")
	timeout := fs.Duration("timeout", 10*time.Second, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: *timeout}
	return clearCache(client, *server, out)
}

func clearCache(client *http.Client, server string, out io.Writer) error {
	req, err := http.NewRequest(http.MethodDelete, strings.TrimRight(server, "/")+"/api/cache", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("clear-cache: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear-cache: server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	fmt.Fprintln(out, "cache cleared")
	return nil
}
