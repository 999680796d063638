package app

import (
	"fmt"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/vk/mathscope"
	"github.com/vk/mathscope/internal/scene"
)

// writeTable prints one row per live scene expression, in scene order.
func (a *App) writeTable(sc *scene.Scene) {
	table := tablewriter.NewWriter(a.outW)
	table.SetHeader([]string{"ID", "Expression", "Result"})
	table.SetAutoWrapText(false)

	for _, e := range sc.Expressions {
		_, live := a.scope.Node(e.ID)
		result, ok := a.scope.Result(e.ID)
		err := a.scope.Err(e.ID)
		var cell string
		switch {
		case ok:
			cell = result.String()
		case err != nil:
			cell = a.errColor.Sprint("error: " + err.Error())
		case !live:
			// Deleted.
			continue
		}
		table.Append([]string{e.ID, e.Expr, cell})
	}
	table.Render()
}

// writeChange prints what the deletion of ids changed.
func (a *App) writeChange(ids []string, ev mathscope.Event) {
	a.headColor.Fprintf(a.outW, "After deleting %s:\n", strings.Join(ids, ", "))
	if ev.Results != nil {
		a.writeDiff("results", *ev.Results)
	}
	a.writeDiff("errors", ev.Errors)
}

func (a *App) writeDiff(label string, d mathscope.Diff) {
	fmt.Fprintf(a.outW, "  %s: added [%s] updated [%s] deleted [%s]\n",
		label,
		strings.Join(sortedIDs(d.Added), " "),
		strings.Join(sortedIDs(d.Updated), " "),
		strings.Join(sortedIDs(d.Deleted), " "),
	)
}

func sortedIDs(set mapset.Set[string]) []string {
	if set == nil {
		return nil
	}
	ids := set.ToSlice()
	slices.Sort(ids)
	return ids
}
