package calculator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"trenpajak/internal/config"
	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

// AggregationError 汇总过程中的意外错误（仅记录日志，不向外返回）
type AggregationError struct {
	Cause any
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("gagal menghitung dashboard: %v", e.Cause)
}

// idColumns 企业计数时按顺序选取第一个有值的列
var idColumns = []string{model.ColBusinessID, model.ColPrimaryID, model.ColSecondaryID, model.ColBusinessName}

// Aggregate 计算看板指标，任何异常都返回全零指标
func Aggregate(rows []model.Row) (metrics model.DashboardMetrics) {
	defer func() {
		if r := recover(); r != nil {
			config.LogError("calculator", "Aggregate", len(rows), &AggregationError{Cause: r})
			metrics = model.EmptyDashboard()
		}
	}()

	metrics = model.EmptyDashboard()
	if len(rows) == 0 {
		return metrics
	}

	metrics.TotalBusinesses = countBusinesses(rows)

	total := decimal.Zero
	normal, withCondition := 0, 0
	for _, row := range rows {
		total = total.Add(parser.ToDecimal(row[model.ColRevenue]))

		if parser.IsBlank(row[model.ColCondition]) {
			continue
		}
		cond := strings.ToUpper(strings.TrimSpace(parser.ToString(row[model.ColCondition])))
		withCondition++
		metrics.StatusCounts[cond]++
		switch model.Condition(cond) {
		case model.ConditionNormal:
			normal++
		case model.ConditionAnomalous:
			metrics.AnomalyCount++
		}
	}
	metrics.TotalRevenue = total.InexactFloat64()
	if withCondition > 0 {
		metrics.CompliancePercent = int(math.RoundToEven(float64(normal) / float64(withCondition) * 100))
	}

	metrics.MonthlyTrend = monthlyTrend(rows)
	return metrics
}

func countBusinesses(rows []model.Row) int {
	for _, col := range idColumns {
		distinct := map[string]struct{}{}
		for _, row := range rows {
			v := row[col]
			if parser.IsBlank(v) {
				continue
			}
			distinct[strings.TrimSpace(parser.ToString(v))] = struct{}{}
		}
		if len(distinct) > 0 {
			return len(distinct)
		}
	}
	return 0
}

// monthlyTrend 按月汇总营业额与税额，仅统计有金额的行，无法识别的月份忽略
func monthlyTrend(rows []model.Row) []model.MonthlyTrend {
	periodCol := model.ColPeriod
	for _, row := range rows {
		if !parser.IsBlank(row[model.ColPeriodISO]) {
			periodCol = model.ColPeriodISO
			break
		}
	}

	type bucket struct {
		revenue decimal.Decimal
		tax     decimal.Decimal
	}
	buckets := map[int]*bucket{}
	for _, row := range rows {
		revenue := parser.ToDecimal(row[model.ColRevenue])
		tax := parser.ToDecimal(row[model.ColTaxAmount])
		if !revenue.IsPositive() && !tax.IsPositive() {
			continue
		}
		if parser.IsBlank(row[periodCol]) {
			continue
		}
		_, order, ok := parser.NormalizeMonth(parser.ToString(row[periodCol]))
		if !ok {
			continue
		}
		b, exists := buckets[order]
		if !exists {
			b = &bucket{}
			buckets[order] = b
		}
		b.revenue = b.revenue.Add(revenue)
		b.tax = b.tax.Add(tax)
	}

	orders := make([]int, 0, len(buckets))
	for o := range buckets {
		orders = append(orders, o)
	}
	sort.Ints(orders)

	trend := make([]model.MonthlyTrend, 0, len(orders))
	for _, o := range orders {
		name := parser.MonthOrder[o-1]
		trend = append(trend, model.MonthlyTrend{
			MonthDisplay: strings.ToUpper(name[:1]) + name[1:],
			Month:        name,
			Order:        o,
			Revenue:      buckets[o].revenue.InexactFloat64(),
			TaxPaid:      buckets[o].tax.InexactFloat64(),
		})
	}
	return trend
}
