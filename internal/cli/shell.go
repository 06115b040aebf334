package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/cartengine/internal/bundle"
	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/catalog"
	"github.com/roach88/cartengine/internal/errcode"
	"github.com/roach88/cartengine/internal/notify"
)

const shellHelp = `Commands:
  add <id> [qty]     add a product (default 1)
  set <id> <qty>     set a quantity (0 removes)
  remove <id>        remove a product
  clear              empty the cart
  show               print the cart
  quote <id>...      price a bundle at the configured rate
  catalog            list products
  dismiss            hide the toast
  help               this text
  quit               leave the shell`

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive cart session",
		Long: `Start an interactive session on the persisted cart.

The shell keeps one store open, prints the cart badge whenever the item
count changes and shows add-to-cart toasts until they time out. With
watch_catalog enabled, catalog file edits are picked up live.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(rootOpts, cmd)
		},
	}
}

// syncWriter serializes writes from the shell loop and timer goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func runShell(opts *RootOptions, cmd *cobra.Command) error {
	out := &syncWriter{w: cmd.OutOrStdout()}
	f := &OutputFormatter{Format: opts.Format, Writer: out, ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	s, err := openSession(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		_ = f.Error(codeForExit(err), err.Error(), nil)
		return err
	}
	defer s.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if s.Config.WatchCatalog {
		s.Catalog.OnReload = func(m *catalog.Memory, err error) {
			if err == nil {
				fmt.Fprintf(out, "catalog reloaded: %d products\n", m.Len())
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Catalog.Watch(ctx, s.Config.Catalog); err != nil {
				slog.Warn("catalog watch stopped", "error", err)
			}
		}()
	}

	if opts.Format == "text" {
		unsubBadge := cart.SelectComparable(s.Store, cart.ItemCountOf, func(n int) {
			fmt.Fprintf(out, "[cart: %d]\n", n)
		})
		defer unsubBadge()

		unsubToast := s.Toasts.Subscribe(func(t notify.Toast) {
			fmt.Fprintln(out, toastLine(t))
		})
		defer unsubToast()

		fmt.Fprintf(out, "cartctl shell - %d item(s) in cart. Type 'help' for commands.\n", s.Store.ItemCount())
	}

	// The reader is not waited for: a terminal read cannot be interrupted,
	// and the goroutine ends with the process or at EOF.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := shellExec(ctx, s, f, line); quit {
				return nil
			}
		}
	}
}

// toastLine renders a toast transition.
func toastLine(t notify.Toast) string {
	if !t.Visible {
		return "(toast hidden)"
	}
	ev := t.Event
	return fmt.Sprintf("✓ Added %s - %d item(s), %s", ev.ProductName, ev.TotalItems, ev.TotalPrice.StringFixed(2))
}

// shellExec runs one shell line. It reports true when the shell should exit.
func shellExec(ctx context.Context, s *Session, f *OutputFormatter, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	usage := func(u string) {
		_ = f.Error(errcode.InvalidInput, "usage: "+u, nil)
	}
	cartOp := func(err error) {
		if err != nil {
			_ = f.Fail(err)
			return
		}
		if f.Format == "json" {
			_ = f.Success(newCartView(s.Store.State()))
		}
	}

	switch name {
	case "quit", "exit":
		return true
	case "help", "?":
		_ = f.Success(shellHelp)
	case "add":
		if len(args) < 1 || len(args) > 2 {
			usage("add <id> [qty]")
			return false
		}
		qty := 1
		if len(args) == 2 {
			n, err := parseQuantity(args[0], args[1], 1)
			if err != nil {
				cartOp(err)
				return false
			}
			qty = n
		}
		cartOp(s.Store.Add(ctx, args[0], qty))
	case "set":
		if len(args) != 2 {
			usage("set <id> <qty>")
			return false
		}
		n, err := parseQuantity(args[0], args[1], 0)
		if err != nil {
			cartOp(err)
			return false
		}
		cartOp(s.Store.SetQuantity(ctx, args[0], n))
	case "remove", "rm":
		if len(args) != 1 {
			usage("remove <id>")
			return false
		}
		cartOp(s.Store.Remove(ctx, args[0]))
	case "clear":
		cartOp(s.Store.Clear(ctx))
	case "show":
		_ = f.Success(newCartView(s.Store.State()))
	case "quote":
		if len(args) == 0 {
			usage("quote <id>...")
			return false
		}
		q, err := bundle.Price(s.Catalog, args, s.Config.Rate())
		if err != nil {
			_ = f.Fail(err)
			return false
		}
		_ = f.Success(newQuoteView(q))
	case "catalog":
		_ = f.Success(newCatalogView(s.Catalog.Snapshot()))
	case "dismiss":
		s.Toasts.Dismiss()
	default:
		_ = f.Error(errcode.InvalidInput, fmt.Sprintf("unknown command %q (try 'help')", name), nil)
	}
	return false
}
