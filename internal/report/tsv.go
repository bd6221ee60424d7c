package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"strconv"

	"retail-insights/internal/models"
)

var enrichedColumns = []string{
	"order_id", "id", "base_id", "phone", "name", "address", "area", "city", "type",
	"product", "brand", "category", "amount", "price_gross", "date",
}

// WriteEnrichedRows writes rows tab-separated with a header line, in the
// order given.
func WriteEnrichedRows(path string, rows []models.TransactionRow) error {
	return writeFile(path, func(bw *bufio.Writer) error {
		w := csv.NewWriter(bw)
		w.Comma = '\t'

		if err := w.Write(enrichedColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		record := make([]string, len(enrichedColumns))
		for i, r := range rows {
			record[0] = r.OrderID
			record[1] = r.RawID
			record[2] = r.RawBaseID
			record[3] = r.Phone
			record[4] = r.CustomerName
			record[5] = r.Address
			record[6] = r.Area
			record[7] = r.City
			record[8] = r.CustomerType
			record[9] = r.ProductName
			record[10] = r.Brand
			record[11] = r.Category
			record[12] = formatAmount(r.Quantity)
			record[13] = formatAmount(r.UnitPrice)
			record[14] = r.Date
			if err := w.Write(record); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}

		w.Flush()
		return w.Error()
	})
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
