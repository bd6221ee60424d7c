package aggregate

import (
	"context"
	stderrors "errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"retail-insights/internal/models"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name, phone string
		want        string
	}{
		{"Joe's Cafe", "0100", "Joe's Cafe_100"},
		{" Joe's Cafe ", "01-00", "Joe's Cafe_100"},
		{"", "0100", "Unknown_100"},
		{"Joe", "", "Joe_0"},
		{"joe", "0100", "joe_100"},
	}
	for _, tt := range tests {
		if got := Key(tt.name, tt.phone); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.name, tt.phone, got, tt.want)
		}
	}
	if CustomerID("a_1") != CustomerID("a_1") || CustomerID("a_1") == CustomerID("a_2") {
		t.Error("CustomerID should be stable and distinct per key")
	}
}

func TestAggregate_SingleLineCustomer(t *testing.T) {
	rows := []models.TransactionRow{{
		OrderID: "o1", Phone: "0100", CustomerName: "Joe's Cafe", Area: "Maadi", City: "Cairo",
		ProductName: "Pepsi Can", Brand: "Pepsi", Quantity: 2, UnitPrice: 100, Date: "2024-01-01",
	}}

	customers := Aggregate(rows)
	if len(customers) != 1 {
		t.Fatalf("len(customers) = %d, want 1", len(customers))
	}
	c := customers[0]
	if c.TotalGMV != 200 || c.OrderCount != 1 || c.UniqueOrderCount != 1 || c.AvgOrderValue != 200 {
		t.Errorf("aggregate = gmv %v orders %d unique %d avg %v", c.TotalGMV, c.OrderCount, c.UniqueOrderCount, c.AvgOrderValue)
	}
	if c.ItemCount != 2 || c.ProductFrequency["Pepsi Can"] != 2 || c.BrandFrequency["Pepsi"] != 2 {
		t.Errorf("counts = items %v products %v brands %v", c.ItemCount, c.ProductFrequency, c.BrandFrequency)
	}
	if c.Phone != "0100" || c.PhoneValue != 100 || c.CustomerID != CustomerID(c.Key) {
		t.Errorf("identity = %q %d %q", c.Phone, c.PhoneValue, c.CustomerID)
	}
}

func TestAggregate_Folding(t *testing.T) {
	rows := []models.TransactionRow{
		{OrderID: "o1", Phone: "0100", CustomerName: "Joe", Area: "Maadi", City: "Cairo", CustomerType: "Cafe", ProductName: "Pepsi", Brand: "Pepsi", Quantity: 1, UnitPrice: 10, Date: "d1"},
		{OrderID: "o1", Phone: "100", CustomerName: "Joe", Area: "Zamalek", City: "Giza", CustomerType: "Store", ProductName: "Chips", Quantity: 3, UnitPrice: 5, Date: "d1"},
		{OrderID: "o2", Phone: "0100", CustomerName: "Joe", ProductName: "Pepsi", Brand: " ", Quantity: 2, UnitPrice: 10, Date: "d2"},
		{OrderID: "o3", Phone: "0100", CustomerName: "joe", Quantity: 1, UnitPrice: 1, Date: "d3"},
	}

	customers := Aggregate(rows)
	if len(customers) != 2 {
		t.Fatalf("len(customers) = %d, want 2 (names are case-sensitive)", len(customers))
	}

	c := customers[0]
	if c.Name != "Joe" {
		t.Fatalf("top customer = %q", c.Name)
	}
	if c.Area != "Maadi" || c.City != "Cairo" || c.Type != "Cafe" {
		t.Errorf("first-seen snapshot = %q/%q/%q", c.Area, c.City, c.Type)
	}
	if c.TotalGMV != 45 || c.OrderCount != 3 || c.UniqueOrderCount != 2 || c.ItemCount != 6 {
		t.Errorf("scalars = gmv %v lines %d orders %d items %v", c.TotalGMV, c.OrderCount, c.UniqueOrderCount, c.ItemCount)
	}
	if c.AvgOrderValue != 22.5 {
		t.Errorf("AvgOrderValue = %v, want 22.5", c.AvgOrderValue)
	}
	if c.ProductFrequency["Pepsi"] != 3 || c.ProductFrequency["Chips"] != 3 || c.UniqueProductCount != 2 {
		t.Errorf("products = %v", c.ProductFrequency)
	}
	if c.UniqueBrandCount != 1 || c.UniqueDateCount != 2 {
		t.Errorf("brands %d dates %d", c.UniqueBrandCount, c.UniqueDateCount)
	}

	orders := RecentOrders(c, 0)
	if len(orders) != 2 || orders[0].OrderID != "o2" || orders[1].Lines != 2 || orders[1].GMV != 25 {
		t.Errorf("RecentOrders() = %+v", orders)
	}
	if got := RecentOrders(c, 1); len(got) != 1 {
		t.Errorf("RecentOrders(limit 1) = %+v", got)
	}
}

func TestAggregate_AverageRounding(t *testing.T) {
	rows := []models.TransactionRow{
		{OrderID: "a", Phone: "1", CustomerName: "X", Quantity: 1, UnitPrice: 10},
		{OrderID: "b", Phone: "1", CustomerName: "X", Quantity: 1, UnitPrice: 10},
		{OrderID: "c", Phone: "1", CustomerName: "X", Quantity: 1, UnitPrice: 0.01},
	}
	if got := Aggregate(rows)[0].AvgOrderValue; got != 6.67 {
		t.Errorf("AvgOrderValue = %v, want 6.67", got)
	}
}

func TestAggregate_SortTiesKeepEncounterOrder(t *testing.T) {
	rows := []models.TransactionRow{
		{OrderID: "1", Phone: "3", CustomerName: "C", Quantity: 1, UnitPrice: 50},
		{OrderID: "2", Phone: "1", CustomerName: "A", Quantity: 1, UnitPrice: 100},
		{OrderID: "3", Phone: "2", CustomerName: "B", Quantity: 1, UnitPrice: 100},
		{OrderID: "4", Phone: "4", CustomerName: "D", Quantity: 0, UnitPrice: 100},
	}

	var names []string
	for _, c := range Aggregate(rows) {
		names = append(names, c.Name)
	}
	if want := []string{"A", "B", "C", "D"}; !reflect.DeepEqual(names, want) {
		t.Errorf("order = %v, want %v", names, want)
	}
}

func TestMerge_FirstSeenByInputOrder(t *testing.T) {
	early := models.TransactionRow{OrderID: "o1", Phone: "0100", CustomerName: "Joe", Area: "Maadi", Date: "d1"}
	late := models.TransactionRow{OrderID: "o1", Phone: "0100", CustomerName: "Joe", Area: "Dokki", Date: "d9"}

	a, b := New(), New()
	a.Add(5, late)
	b.Add(1, early)
	a.Merge(b)

	c := a.Finalize()[0]
	if c.Area != "Maadi" || c.FirstSeen != 1 {
		t.Errorf("merged snapshot = %q at %d, want Maadi at 1", c.Area, c.FirstSeen)
	}
	if o := c.Orders["o1"]; o.Date != "d1" || o.Lines != 2 {
		t.Errorf("merged order = %+v", o)
	}

	out := New()
	out.Add(9, late)
	out.Add(2, early)
	if got := out.Finalize()[0].Area; got != "Maadi" {
		t.Errorf("out-of-order Add snapshot = %q, want Maadi", got)
	}
}

var (
	genCustomers = []struct{ name, phone string }{
		{"Joe", "0100"}, {"Joe", "100"}, {"Sara", "0200"}, {"", "0300"}, {"محل", ""},
	}
	genProducts = []string{"", "Pepsi", "Chips", "Tea"}
	genDates    = []string{"d1", "d2", "d3"}
	genAreas    = []string{"", "Maadi", "Dokki"}
)

func rowsGen() gopter.Gen {
	row := gopter.CombineGens(
		gen.IntRange(0, len(genCustomers)-1),
		gen.IntRange(0, 6),
		gen.IntRange(0, len(genProducts)-1),
		gen.IntRange(0, len(genProducts)-1),
		gen.IntRange(0, len(genDates)-1),
		gen.IntRange(0, len(genAreas)-1),
		gen.IntRange(0, 5),
		gen.IntRange(0, 400),
	).Map(func(v []interface{}) models.TransactionRow {
		c := genCustomers[v[0].(int)]
		return models.TransactionRow{
			CustomerName: c.name,
			Phone:        c.phone,
			OrderID:      "o" + string(rune('0'+v[1].(int))),
			ProductName:  genProducts[v[2].(int)],
			Brand:        genProducts[v[3].(int)],
			Date:         genDates[v[4].(int)],
			Area:         genAreas[v[5].(int)],
			Quantity:     float64(v[6].(int)),
			UnitPrice:    0.1 + float64(v[7].(int))*0.01,
		}
	})
	return gen.SliceOf(row)
}

func TestAggregate_Additivity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("merging any two-way split equals the whole fold", prop.ForAll(
		func(rows []models.TransactionRow, mask []bool) bool {
			left, right := New(), New()
			for i, row := range rows {
				if i < len(mask) && mask[i] {
					left.Add(int64(i), row)
				} else {
					right.Add(int64(i), row)
				}
			}
			left.Merge(right)
			return reflect.DeepEqual(left.Finalize(), Aggregate(rows))
		},
		rowsGen(),
		gen.SliceOf(gen.Bool()),
	))

	properties.Property("partitioned fold equals the sequential fold", prop.ForAll(
		func(rows []models.TransactionRow, parts int) bool {
			got, err := Partitioned(context.Background(), rows, parts)
			return err == nil && reflect.DeepEqual(got, Aggregate(rows))
		},
		rowsGen(),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

func TestPartitioned_DecimalPricesMatchSequential(t *testing.T) {
	rows := make([]models.TransactionRow, 1000)
	for i := range rows {
		rows[i] = models.TransactionRow{
			CustomerName: "Joe", Phone: "0100", OrderID: "o" + strconv.Itoa(i%50),
			ProductName: "Pepsi", Brand: "Pepsi", Date: "2024-01-01",
			Quantity: 3, UnitPrice: 0.1 + float64(i%7)*0.01,
		}
	}

	want := Aggregate(rows)
	got, err := Partitioned(context.Background(), rows, 4)
	if err != nil {
		t.Fatalf("Partitioned: %v", err)
	}
	if got[0].TotalGMV != 389.91 || want[0].TotalGMV != 389.91 {
		t.Errorf("TotalGMV = %v sequential, %v partitioned, want 389.91", want[0].TotalGMV, got[0].TotalGMV)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("partitioned fold differs from the sequential fold")
	}
}

func TestPartitioned_Canceled(t *testing.T) {
	rows := make([]models.TransactionRow, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Partitioned(ctx, rows, 4); !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func BenchmarkAggregate(b *testing.B) {
	rows := make([]models.TransactionRow, 100000)
	for i := range rows {
		c := genCustomers[i%len(genCustomers)]
		rows[i] = models.TransactionRow{CustomerName: c.name, Phone: c.phone, OrderID: "o", ProductName: "Pepsi", Quantity: 1, UnitPrice: 10}
	}

	for b.Loop() {
		Aggregate(rows)
	}
}

func BenchmarkPartitioned(b *testing.B) {
	rows := make([]models.TransactionRow, 100000)
	for i := range rows {
		c := genCustomers[i%len(genCustomers)]
		rows[i] = models.TransactionRow{CustomerName: c.name, Phone: c.phone, OrderID: "o", ProductName: "Pepsi", Quantity: 1, UnitPrice: 10}
	}
	ctx := context.Background()

	for b.Loop() {
		if _, err := Partitioned(ctx, rows, 4); err != nil {
			b.Fatal(err)
		}
	}
}
