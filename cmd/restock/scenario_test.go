package main

import (
	"strings"
	"testing"

	"github.com/andresuchdata/restock/internal/replenishment"
)

func TestParseScenarioCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []replenishment.ScenarioRow
		wantErr bool
	}{
		{
			name:  "AllColumns",
			input: "location,sku,stock,demand_daily,qty_to_add\nL1,A,14,2,6\n",
			want:  []replenishment.ScenarioRow{{Location: "L1", SKU: "A", StockCurrent: 14, DemandDaily: 2, QuantityToAdd: 6}},
		},
		{
			name:  "ReorderedWithoutQuantity",
			input: "sku,demand_daily,location,stock\nB,1.5,L2,3\n",
			want:  []replenishment.ScenarioRow{{Location: "L2", SKU: "B", StockCurrent: 3, DemandDaily: 1.5}},
		},
		{
			name:  "DecimalComma",
			input: "location,sku,stock,demand_daily\nL1,C,\"2,5\",1\n",
			want:  []replenishment.ScenarioRow{{Location: "L1", SKU: "C", StockCurrent: 2.5, DemandDaily: 1}},
		},
		{
			name:  "EmptyCellsAreZero",
			input: "location,sku,stock,demand_daily,qty_to_add\nL1,D,,,\n",
			want:  []replenishment.ScenarioRow{{Location: "L1", SKU: "D"}},
		},
		{name: "Empty", input: "", wantErr: true},
		{name: "MissingColumn", input: "location,sku,stock\nL1,A,1\n", wantErr: true},
		{name: "BadNumber", input: "location,sku,stock,demand_daily\nL1,A,x,1\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScenarioCSV(strings.NewReader(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseScenarioCSV() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseScenarioCSV() = %d rows, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
