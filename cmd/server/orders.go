package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"production-service/internal/config"
	"production-service/internal/domain"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newOrdersCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Print production orders in board order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			orders, err := a.service.ListOrders(ctx)
			if err != nil {
				return err
			}
			return renderOrders(cmd.OutOrStdout(), filterStatus(orders, domain.OrderStatus(status)))
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "only orders with this status")
	return cmd
}

func filterStatus(orders []domain.ProductionOrder, status domain.OrderStatus) []domain.ProductionOrder {
	if status == "" {
		return orders
	}
	out := orders[:0:0]
	for _, o := range orders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// stageProgress is done stages over all stages.
func stageProgress(stages []domain.Stage) string {
	done := 0
	for _, s := range stages {
		if s.Status == domain.StageDone {
			done++
		}
	}
	return fmt.Sprintf("%d/%d", done, len(stages))
}

func renderOrders(w io.Writer, orders []domain.ProductionOrder) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Code", "Item", "Customer", "Qty", "Delivery", "Priority", "Status", "Stages", "Parent")

	for _, o := range orders {
		parent := ""
		if o.ParentOrderID != nil {
			parent = *o.ParentOrderID
		}
		row := []string{
			strconv.Itoa(o.SortOrder),
			o.OrderCode,
			o.ItemCode,
			o.CustomerName,
			strconv.Itoa(o.TotalQuantity),
			o.DeliveryDate,
			string(o.Priority),
			string(o.Status),
			stageProgress(o.Stages),
			parent,
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
