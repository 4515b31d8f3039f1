package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"klinecache/internal/binance/controller"
	"klinecache/internal/binance/rolling"
	"klinecache/pkg/binance"

	"github.com/logrusorgru/aurora"
)

// renderer prints one line per published buffer.
type renderer struct {
	mu  sync.Mutex
	out io.Writer
	au  aurora.Aurora
}

func newRenderer(out io.Writer, colors bool) *renderer {
	return &renderer{out: out, au: aurora.NewAurora(colors)}
}

func (r *renderer) Render(u controller.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	head := fmt.Sprintf("%s %s", r.au.Bold(u.Symbol), binance.IntervalLabel(u.Interval))

	last, ok := u.Buffer.Last()
	if !ok {
		fmt.Fprintf(r.out, "%s | no data\n", head)
		return
	}

	price := fmt.Sprintf("%.4f", last.C)
	if last.C >= last.O {
		price = fmt.Sprintf("%s", r.au.Green(price))
	} else {
		price = fmt.Sprintf("%s", r.au.Red(price))
	}
	fmt.Fprintf(r.out, "%s | t=%d o=%.4f h=%.4f l=%.4f c=%s | %d/%d\n",
		head, last.T, last.O, last.H, last.L, price, len(u.Buffer), rolling.Capacity)
}

// parseSelection reads "PAIR INTERVAL", "PAIR" or "INTERVAL". Missing parts
// keep the current value. An empty line selects nothing.
func parseSelection(line, curSymbol, curInterval string) (string, string, error) {
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return "", "", nil
	case 1:
		if _, err := binance.ParseKlineInterval(fields[0]); err == nil {
			if curSymbol == "" {
				return "", "", fmt.Errorf("no symbol selected yet")
			}
			return curSymbol, fields[0], nil
		}
		return binance.QualifySymbol(strings.ToUpper(fields[0])), curInterval, nil
	case 2:
		if _, err := binance.ParseKlineInterval(fields[1]); err != nil {
			return "", "", err
		}
		return binance.QualifySymbol(strings.ToUpper(fields[0])), fields[1], nil
	default:
		return "", "", fmt.Errorf("expected \"PAIR [INTERVAL]\", got %d fields", len(fields))
	}
}
