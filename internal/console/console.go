package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"go-image-identifier/internal/observer"
	"go-image-identifier/internal/session"
	"go-image-identifier/internal/storage"
	"go-image-identifier/pkg/models"
)

const helpText = `Commands:
  file <path>    upload a local image
  url <text>     use a URL (or any text) as the image
  clear          clear the current image
  identify       identify the current image
  history        list recent images
  pick <n>       select entry n from history
  info           show current image details
  stats          show session statistics
  help           show this help
  quit           exit`

// Console is a line-oriented front end for a session
type Console struct {
	sess    *session.Session
	files   *storage.LocalImageFetcher
	metrics *observer.MetricsObserver
	out     io.Writer
}

func New(sess *session.Session, files *storage.LocalImageFetcher, metrics *observer.MetricsObserver, out io.Writer) *Console {
	return &Console{
		sess:    sess,
		files:   files,
		metrics: metrics,
		out:     out,
	}
}

// Run reads commands until quit or EOF
func (c *Console) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: "> ",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("file"),
			readline.PcItem("url"),
			readline.PcItem("clear"),
			readline.PcItem("identify"),
			readline.PcItem("history"),
			readline.PcItem("pick"),
			readline.PcItem("info"),
			readline.PcItem("stats"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()
	c.out = rl.Stdout()

	fmt.Fprintln(c.out, "Identification System (type help for commands)")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil { // io.EOF
			return nil
		}
		if c.Execute(ctx, line) {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// Execute runs one command line and reports whether the console should exit
func (c *Console) Execute(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "":
		return false
	case "quit", "exit":
		return true
	case "help":
		fmt.Fprintln(c.out, helpText)
		return false
	case "stats":
		c.printStats()
		return false
	}

	snap := c.sess.Snapshot()
	if snap.ModelStatus == models.ModelStatusAbsent || snap.ModelStatus == models.ModelStatusLoading {
		fmt.Fprintln(c.out, "Model Loading...")
		return false
	}

	switch name {
	case "file":
		c.selectFile(arg)
	case "url":
		c.sess.SelectURL(arg)
		c.printImage()
	case "clear":
		c.sess.SelectFile(nil)
		fmt.Fprintln(c.out, "No image selected")
	case "identify":
		c.identify(ctx)
	case "history":
		c.printHistory()
	case "pick":
		c.pick(arg)
	case "info":
		c.printInfo(ctx)
	default:
		fmt.Fprintf(c.out, "unknown command %q, type help\n", name)
	}
	return false
}

func (c *Console) selectFile(path string) {
	if path == "" {
		fmt.Fprintln(c.out, "usage: file <path>")
		return
	}
	file, err := c.files.OpenImageFile(path)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if _, err := c.sess.SelectFile(file); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printImage()
}

func (c *Console) identify(ctx context.Context) {
	results, err := c.sess.Identify(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	for _, p := range results {
		line := fmt.Sprintf("%-30s Confidence level: %s", p.Label, p.Percent())
		if p.BestGuess {
			line += "  Best Guess"
		}
		fmt.Fprintln(c.out, line)
	}
}

func (c *Console) pick(arg string) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintln(c.out, "usage: pick <n>")
		return
	}
	history := c.sess.Snapshot().History
	if n < 1 || n > len(history) {
		fmt.Fprintf(c.out, "no history entry %d\n", n)
		return
	}
	if err := c.sess.SelectFromHistory(history[n-1]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	c.printImage()
}

func (c *Console) printImage() {
	snap := c.sess.Snapshot()
	if snap.Image.IsEmpty() {
		fmt.Fprintln(c.out, "No image selected")
		return
	}
	fmt.Fprintf(c.out, "Image: %s\n", snap.Image)
}

func (c *Console) printHistory() {
	history := c.sess.Snapshot().History
	if len(history) == 0 {
		fmt.Fprintln(c.out, "Recent Images: none")
		return
	}
	fmt.Fprintln(c.out, "Recent Images:")
	for i, ref := range history {
		fmt.Fprintf(c.out, "%3d  %s\n", i+1, ref)
	}
}

func (c *Console) printInfo(ctx context.Context) {
	meta, err := c.sess.ImageMetadata(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Image: %s\n", c.sess.Snapshot().Image)
	fmt.Fprintf(c.out, "  size: %dx%d\n", meta.Width, meta.Height)
	if meta.ContentType != "" {
		fmt.Fprintf(c.out, "  type: %s\n", meta.ContentType)
	}
	if meta.ContentLength > 0 {
		fmt.Fprintf(c.out, "  bytes: %d\n", meta.ContentLength)
	}
}

func (c *Console) printStats() {
	if c.metrics == nil {
		fmt.Fprintln(c.out, "statistics unavailable")
		return
	}
	stats := c.metrics.GetMetrics()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.out, "%-24s %v\n", k, stats[k])
	}
}
