package trade

import (
	"math"
	"strings"
	"testing"

	"crop-stress-lab/internal/domain"
)

const flows = `Source,Destination,COMM,TotValue
usa,chn,gro,10
usa,chn,gro,5
bra,chn,gro,
chn,chn,gro,3
usa,chn,wht,100
bra,jpn,gro,2
usa,hkg,gro,1
`

func readFlows(t *testing.T) []domain.TradeEdge {
	t.Helper()
	edges, err := ReadCSV(strings.NewReader(flows))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return edges
}

func TestReadCSV_EmptyValueIsZero(t *testing.T) {
	edges := readFlows(t)
	if len(edges) != 7 {
		t.Fatalf("got %d edges, want 7", len(edges))
	}
	if edges[2].Value != 0 {
		t.Errorf("empty TotValue = %v, want 0", edges[2].Value)
	}
}

func TestReadCSV_MissingValuesAreZero(t *testing.T) {
	in := "Source,Destination,COMM,TotValue\n" +
		"usa,chn,gro,NaN\n" +
		"usa,chn,gro,NA\n" +
		"usa,chn,gro,N/A\n" +
		"usa,chn,gro,NULL\n" +
		"usa,chn,gro,nan\n" +
		"usa,chn,gro,NAN\n" +
		"usa,chn,gro,4\n"
	edges, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(edges) != 7 {
		t.Fatalf("got %d edges, want 7", len(edges))
	}
	for i, e := range edges[:6] {
		if e.Value != 0 {
			t.Errorf("edges[%d].Value = %v, want 0", i, e.Value)
		}
	}
	if edges[6].Value != 4 {
		t.Errorf("edges[6].Value = %v, want 4", edges[6].Value)
	}
}

func TestReadCSV_BadValue(t *testing.T) {
	in := "Source,Destination,COMM,TotValue\nusa,chn,gro,lots\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Error("expected error for a non-numeric value")
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("Source,Destination\nusa,chn\n")); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestPrepare_SingleCrop(t *testing.T) {
	exp := domain.Experiment{Product: domain.ProductMaize, ExcludeRegions: []string{"hkg"}}
	table := Prepare(readFlows(t), exp)

	want := []domain.TradeEdge{
		{Source: "bra", Destination: "chn", Value: 0},
		{Source: "bra", Destination: "jpn", Value: 2},
		{Source: "usa", Destination: "chn", Value: 15},
		{Source: "usa", Destination: "hkg", Value: 1},
	}
	if len(table.Edges) != len(want) {
		t.Fatalf("got %d edges, want %d: %+v", len(table.Edges), len(want), table.Edges)
	}
	for i := range want {
		if table.Edges[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, table.Edges[i], want[i])
		}
	}

	if strings.Join(table.Reporters, ",") != "chn,jpn" {
		t.Errorf("Reporters = %v, want [chn jpn]", table.Reporters)
	}
	if strings.Join(table.Partners, ",") != "bra,usa" {
		t.Errorf("Partners = %v, want [bra usa]", table.Partners)
	}
}

func TestPrepare_IncludeSelf(t *testing.T) {
	exp := domain.Experiment{Product: domain.ProductMaize, IncludeSelf: true}
	table := Prepare(readFlows(t), exp)

	rows := table.ImportsOf("chn")
	if len(rows) != 3 {
		t.Fatalf("chn has %d rows, want 3", len(rows))
	}
	if _, ok := table.PartnerIndex("chn"); !ok {
		t.Error("chn should be on the partner axis with self-trade enabled")
	}
}

func TestPrepare_CaloriesKeepsAllCommodities(t *testing.T) {
	exp := domain.Experiment{Product: domain.ProductCalories, ConvertToCalories: true}
	table := Prepare(readFlows(t), exp)

	var usaChn float64
	for _, e := range table.ImportsOf("chn") {
		if e.Source == "usa" {
			usaChn = e.Value
		}
	}
	want := 15*17.67 + 100*13.14
	if math.Abs(usaChn-want) > 1e-9 {
		t.Errorf("usa->chn calories = %v, want %v", usaChn, want)
	}
}
