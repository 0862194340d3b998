package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"retail-dashboard/internal/models"
	"retail-dashboard/internal/services"
)

type kpiReport struct {
	Rows     int                   `json:"rows" yaml:"rows"`
	KPIs     kpiValues             `json:"kpis" yaml:"kpis"`
	Insights models.Insights       `json:"insights" yaml:"insights"`
	Top      []models.GroupRevenue `json:"top_categories" yaml:"top_categories"`
}

// kpiValues flattens services.KPIs. Undefined means are reported as null.
type kpiValues struct {
	TotalRevenue        *float64 `json:"total_revenue" yaml:"total_revenue"`
	Transactions        *float64 `json:"transactions" yaml:"transactions"`
	AvgTransaction      *float64 `json:"avg_transaction" yaml:"avg_transaction"`
	UniqueCustomers     *float64 `json:"unique_customers" yaml:"unique_customers"`
	ItemsPerTransaction *float64 `json:"items_per_transaction" yaml:"items_per_transaction"`
	PercentOfRevenue    *float64 `json:"percent_of_revenue" yaml:"percent_of_revenue"`
}

func defined(f services.Float) *float64 {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newKPIsCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Print the KPI row, insights and top categories for the filtered data",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, view, err := a.filtered(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			k := services.ComputeKPIs(base, view)
			top := services.RevenueByCategory(view)
			if len(top) > 5 {
				top = top[:5]
			}
			report := kpiReport{
				Rows: view.Len(),
				KPIs: kpiValues{
					TotalRevenue:        defined(k.TotalRevenue.Value),
					Transactions:        defined(k.Transactions.Value),
					AvgTransaction:      defined(k.AvgTransaction.Value),
					UniqueCustomers:     defined(k.UniqueCustomers.Value),
					ItemsPerTransaction: defined(k.ItemsPerTransaction.Value),
					PercentOfRevenue:    defined(k.TotalRevenue.PercentOfTotal),
				},
				Insights: services.Insights(view),
				Top:      top,
			}

			switch format {
			case "json":
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "yaml":
				enc := yaml.NewEncoder(a.out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(report)
			default:
				return fmt.Errorf("invalid --format %q (use json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}
