package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/drawbot/internal/domain"
)

// Console implementa ports.Reporter. Escribe en la terminal del operador;
// no publica nada hacia afuera.
type Console struct {
	out   io.Writer
	table bool // imprime el ranking completo
	limit int  // filas del ranking (0 = todas)
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(table bool, limit int) *Console {
	return &Console{out: os.Stdout, table: table, limit: limit}
}

// NewConsoleWriter crea un reporter para tests.
func NewConsoleWriter(w io.Writer, table bool, limit int) *Console {
	return &Console{out: w, table: table, limit: limit}
}

// Report imprime una línea por selección y, en modo tabla, el ranking.
func (c *Console) Report(_ context.Context, sel domain.Selection) error {
	c.printSummary(sel)

	a := sel.Analysis
	if a == nil {
		return nil
	}
	for _, w := range a.Warnings {
		fmt.Fprintf(c.out, "  ⚠ %s\n", w)
	}
	if c.table && len(a.Candidates) > 0 {
		c.printTable(sel.Method, a.Candidates)
		c.printRejected(a.Rejected)
	}
	return nil
}

func (c *Console) printSummary(sel domain.Selection) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] event %s → %s (%s)",
		sel.SelectedAt.Format("15:04:05"), sel.EventID, itemLabel(sel.Item), sel.Method)

	if a := sel.Analysis; a != nil {
		snap := a.Constraints
		if !a.NoSales {
			fmt.Fprintf(&sb, " stake $%s cap $%s (%s)",
				snap.TotalStake.StringFixed(2), snap.MaxPayout.StringFixed(2), snap.CapSource)
		} else {
			sb.WriteString(" no sales")
		}
		fmt.Fprintf(&sb, " passed %d/%d in %s", a.Passed, a.Evaluated, a.Elapsed.Round(time.Microsecond))
		if a.LastResort {
			sb.WriteString(" LAST-RESORT")
		}
		if a.NeedsReview {
			sb.WriteString(" [REVIEW]")
		}
	}
	fmt.Fprintln(c.out, sb.String())
}

func (c *Console) printTable(method domain.Method, cs []domain.Candidate) {
	if c.limit > 0 && len(cs) > c.limit {
		cs = cs[:c.limit]
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Item", "Score", "Tickets", "Sales", "Direct", "Compound", "Total", "Days", "Reason")

	for i, cand := range cs {
		score := "-"
		if method == domain.MethodOptimized {
			score = fmt.Sprintf("%.4f", cand.Score)
		}
		compound := "-"
		if cand.Compound.RelevantCount > 0 {
			compound = fmt.Sprintf("$%s (%d/%d)",
				cand.Compound.TotalLiability.StringFixed(2),
				cand.Compound.CompletingCount, cand.Compound.RelevantCount)
		}
		reason := string(cand.Reason)
		if reason == "" {
			reason = "ok"
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			itemLabel(cand.Item),
			score,
			fmt.Sprintf("%d", cand.TicketCount),
			"$"+cand.SalesAmount.StringFixed(2),
			"$"+cand.DirectPayout.StringFixed(2),
			compound,
			"$"+cand.TotalPayout.StringFixed(2),
			fmt.Sprintf("%d", cand.DaysSinceWin),
			reason,
		)
	}
	table.Render()
}

// printRejected resume los items descartados por motivo.
func (c *Console) printRejected(rejected []domain.Candidate) {
	if len(rejected) == 0 {
		return
	}
	byReason := make(map[domain.RejectReason][]string)
	for _, r := range rejected {
		byReason[r.Reason] = append(byReason[r.Reason], fmt.Sprintf("%02d", r.Item.Code))
	}
	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	for _, r := range reasons {
		codes := byReason[domain.RejectReason(r)]
		fmt.Fprintf(c.out, "  rejected %-14s %s\n", r+":", strings.Join(codes, " "))
	}
}

func itemLabel(it domain.CatalogItem) string {
	if it.Name == "" {
		return fmt.Sprintf("#%02d", it.Code)
	}
	return fmt.Sprintf("#%02d %s", it.Code, it.Name)
}
