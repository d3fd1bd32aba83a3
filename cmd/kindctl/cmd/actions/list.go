package actions

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	listPage      int
	listPageSize  int
	listSearch    string
	listFilter    string
	listFieldArgs []string
	listOutput    string
)

// listResult is what -o json|yaml prints.
type listResult struct {
	Items      []sdk.Action `json:"data" yaml:"data"`
	TotalCount int          `json:"totalCount" yaml:"totalCount"`
	PageNumber int          `json:"pageNumber" yaml:"pageNumber"`
	PageSize   int          `json:"pageSize" yaml:"pageSize"`
	TotalPages int          `json:"totalPages" yaml:"totalPages"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List actions",
	Long: `Lists one page of actions. --search and --filter narrow the page that was
fetched; they do not change what the API returns.

Filters use bexpr syntax over the action fields (id, name, description,
icon, color, active, status, categoryId, createdAt), for example:

  kindctl actions list --filter 'active == true and name contains "Reciclar"'
  kindctl actions list --field active=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(listOutput); err != nil {
			return err
		}
		if listPage < 1 {
			return fmt.Errorf("--page must be at least 1")
		}
		if !slices.Contains(sdk.PageSizeOptions, listPageSize) {
			pterm.Warning.Printf("page size %d is not one of %v offered by the admin\n", listPageSize, sdk.PageSizeOptions)
		}

		filter, err := combineFilter(listFilter, listFieldArgs)
		if err != nil {
			return err
		}

		client, err := sdkClient(cmd.Context())
		if err != nil {
			return err
		}

		page, err := client.ListActions(cmd.Context(), sdk.ListActionsInput{PageNumber: listPage, PageSize: listPageSize})
		if err != nil {
			return fmt.Errorf("failed to list actions: %s", sdk.ErrorMessage(err))
		}

		return printPage(cmd.OutOrStdout(), listOutput, page, listSearch, filter)
	},
}

// combineFilter joins --filter with the expression built from --field pairs.
func combineFilter(filter string, fieldArgs []string) (string, error) {
	filter = strings.TrimSpace(filter)
	fieldExpr, warnings, err := sdk.EqualityFilter(fieldArgs)
	if err != nil {
		return "", err
	}
	for _, warning := range warnings {
		pterm.Warning.Println(warning)
	}
	if fieldExpr == "" {
		return filter, nil
	}
	if filter == "" {
		return fieldExpr, nil
	}
	return fmt.Sprintf("(%s) and (%s)", filter, fieldExpr), nil
}

// printPage narrows the fetched page and prints it in format.
func printPage(w io.Writer, format string, page *sdk.ActionPage, search, filter string) error {
	items := searchActions(page.Items, search)
	items, err := sdk.FilterActions(items, filter)
	if err != nil {
		return err
	}

	if format != FormatTable {
		return encode(w, format, listResult{
			Items:      items,
			TotalCount: page.TotalCount,
			PageNumber: page.PageNumber,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
		})
	}

	if len(items) == 0 {
		if search != "" || filter != "" {
			fmt.Fprintln(w, "No se encontraron acciones que coincidan con tu búsqueda")
		} else {
			fmt.Fprintln(w, "No hay acciones disponibles")
		}
		return nil
	}
	if err := renderTable(w, items); err != nil {
		return err
	}
	pages := max(page.TotalPages, 1)
	first, _, ok := sdk.PageRange(page.PageNumber, page.PageSize, page.TotalCount)
	if !ok {
		fmt.Fprintf(w, "página %d / %d\n", page.PageNumber, pages)
		return nil
	}
	last := first + len(page.Items) - 1
	fmt.Fprintf(w, "%d - %d de %d (página %d / %d)\n", first, last, page.TotalCount, page.PageNumber, pages)
	return nil
}

// searchActions keeps actions whose name or description contains term,
// ignoring case.
func searchActions(items []sdk.Action, term string) []sdk.Action {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return items
	}
	var out []sdk.Action
	for _, a := range items {
		if strings.Contains(strings.ToLower(a.DisplayName()), term) || strings.Contains(strings.ToLower(a.Description), term) {
			out = append(out, a)
		}
	}
	return out
}

func init() {
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", sdk.DefaultPageSize, "Actions per page")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Case-insensitive match on name or description")
	listCmd.Flags().StringVar(&listFilter, "filter", "", "bexpr filter expression (e.g. active == true)")
	listCmd.Flags().StringArrayVar(&listFieldArgs, "field", nil, "Filter by field equality (key=value), e.g. active=true or status=inactivo")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", FormatTable, "Output format: table, json or yaml")
}
