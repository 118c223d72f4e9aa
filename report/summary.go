package report

import (
	"fmt"
	"io"
	"time"

	md "github.com/nao1215/markdown"

	"github.com/xraph/costledger/record"
)

// WriteSummary renders a markdown overview of a folder's records: the
// rollup totals, a table of every record, and the records needing
// attention today.
func WriteSummary(w io.Writer, folderName string, records []*record.Record, now time.Time) error {
	doc := md.NewMarkdown(w)

	doc.H1(fmt.Sprintf("Cost Summary: %s", folderName))
	doc.PlainText(fmt.Sprintf("Generated %s for %d records.", dateOf(now).Format("2006-01-02"), len(records)))

	totals := ComputeTotals(records)
	doc.H2("Totals")
	doc.Table(md.TableSet{
		Header: []string{"Investment", "Earning", "Profit"},
		Rows: [][]string{{
			totals.Investment.String(),
			totals.Earning.String(),
			totals.Profit.String(),
		}},
	})

	doc.H2("Records")
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		due := "-"
		if r.DueDate != nil {
			due = dateOf(*r.DueDate).Format("2006-01-02")
		}
		rows = append(rows, []string{
			r.Reason,
			string(r.Type),
			r.TotalAmount.String(),
			r.TotalReceived.String(),
			r.AmountRemaining().String(),
			due,
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Reason", "Type", "Total", "Received", "Remaining", "Due"},
		Rows:   rows,
	})

	var attention [][]string
	for _, r := range records {
		switch {
		case IsOverdue(r, now):
			attention = append(attention, []string{r.Reason, "overdue", dateOf(*r.DueDate).Format("2006-01-02")})
		case IsDueToday(r, now):
			attention = append(attention, []string{r.Reason, "due today", dateOf(*r.DueDate).Format("2006-01-02")})
		}
	}
	if len(attention) > 0 {
		doc.H2("Needs Attention")
		doc.Table(md.TableSet{
			Header: []string{"Reason", "Status", "Due"},
			Rows:   attention,
		})
	}

	return doc.Build()
}
