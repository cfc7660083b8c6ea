package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	"github.com/xxwlkq/ecommerce-system/internal/repos"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

// ExportKeys are the tables that can be downloaded as CSV.
var ExportKeys = []string{"products", "user_actions", "orders"}

type ExportService struct {
	Store *repos.Store
}

func NewExportService(store *repos.Store) *ExportService { return &ExportService{Store: store} }

// Export writes the table named by key as CSV with a header row.
func (s *ExportService) Export(ctx context.Context, key string, w io.Writer) error {
	key, ok := validate.ExportKey(key)
	if !ok {
		return invalid("key", "unknown export")
	}
	var rows [][]string
	var err error
	switch key {
	case "products":
		rows, err = s.products(ctx)
	case "user_actions":
		rows, err = s.actions(ctx)
	case "orders":
		rows, err = s.orders(ctx)
	default:
		return invalid("key", "unknown export")
	}
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func itoa64(n int64) string { return strconv.FormatInt(n, 10) }

func (s *ExportService) products(ctx context.Context) ([][]string, error) {
	ps, err := s.Store.Products.List(ctx, "")
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"product_id", "name", "category", "price", "stock", "description", "image"}}
	for _, p := range ps {
		rows = append(rows, []string{itoa64(p.ID), p.Name, p.Category, p.Price.StringFixed(2), strconv.Itoa(p.Stock), p.Description, p.Image})
	}
	return rows, nil
}

func (s *ExportService) actions(ctx context.Context) ([][]string, error) {
	recs, err := s.Store.Actions.Query(ctx, domain.ActionFilter{})
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"timestamp", "user_id", "username", "product_id", "product_name", "product_category", "action_type", "session_id", "quantity", "total_amount"}}
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		rows = append(rows, []string{r.Timestamp, r.UserID, r.Username, itoa64(r.ProductID), r.ProductName, r.ProductCategory,
			string(r.ActionType), r.SessionID, strconv.Itoa(r.Quantity), r.TotalAmount.StringFixed(2)})
	}
	return rows, nil
}

func (s *ExportService) orders(ctx context.Context) ([][]string, error) {
	list, err := s.Store.Orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"order_id", "user_id", "username", "address_id", "product_count", "total_amount", "status", "create_time", "items"}}
	for _, o := range list {
		addr := ""
		if o.AddressID != nil {
			addr = itoa64(*o.AddressID)
		}
		items, err := o.Items.Value()
		if err != nil {
			return nil, err
		}
		rows = append(rows, []string{itoa64(o.ID), o.UserID, o.Username, addr, strconv.Itoa(o.Quantity()),
			o.Total.StringFixed(2), string(o.Status), o.CreatedAt, items.(string)})
	}
	return rows, nil
}
