package calculator

import (
	"sort"

	"trenpajak/internal/config"
	"trenpajak/internal/model"
	"trenpajak/internal/parser"
)

// Rules 合规判定参数
type Rules struct {
	RevenueMultiplier float64 // 营业额 = 税额 × 倍数
	AnomalyThreshold  float64 // |增长率| 达到该值即判定异常
	GrowthMin         float64
	GrowthMax         float64
}

// DefaultRules 默认参数
func DefaultRules() Rules {
	return Rules{
		RevenueMultiplier: 10,
		AnomalyThreshold:  0.5,
		GrowthMin:         -1,
		GrowthMax:         10,
	}
}

// RulesFromConfig 从业务配置读取参数
func RulesFromConfig(cfg config.BusinessConfig) Rules {
	return Rules{
		RevenueMultiplier: cfg.RevenueMultiplier,
		AnomalyThreshold:  cfg.AnomalyThreshold,
		GrowthMin:         cfg.MinGrowth,
		GrowthMax:         cfg.MaxGrowth,
	}
}

// Enricher 合规指标计算器
type Enricher struct {
	rules Rules
}

// NewEnricher 创建计算器
func NewEnricher(rules Rules) *Enricher {
	return &Enricher{rules: rules}
}

// Enrich 计算状态、增长率与合规状况（原地修改）
func (e *Enricher) Enrich(records []*model.BusinessRecord) []*model.BusinessRecord {
	for _, r := range records {
		r.PrimaryID = parser.CleanText(r.PrimaryID)
		r.BusinessName = parser.CleanText(r.BusinessName)
		r.Period = parser.CleanText(r.Period)
		if r.BusinessID == "" {
			r.BusinessID = r.PrimaryID
		}

		r.RevenueEstimate = nil
		if r.HasPayment() {
			revenue := *r.TaxAmount * e.rules.RevenueMultiplier
			r.RevenueEstimate = &revenue
		}

		r.Status = model.StatusInvalid
		if !parser.IsBlank(r.BusinessName) && !parser.IsBlank(r.PrimaryID) && !parser.IsBlank(r.Period) && r.HasPayment() {
			r.Status = model.StatusValid
		}
		r.Growth = nil
	}

	e.computeGrowth(records)

	for _, r := range records {
		r.Condition = e.condition(r)
	}
	return records
}

// growthKey 企业 + 月份
type growthKey struct {
	business string
	period   string
}

// computeGrowth 按企业分组、按月份排序，只在 VALID 记录间计算环比
// 结果按 (企业, 月份) 写回
func (e *Enricher) computeGrowth(records []*model.BusinessRecord) {
	type point struct {
		period string
		sortBy string
		tax    float64
	}
	groups := map[string][]point{}
	for _, r := range records {
		if r.Status != model.StatusValid {
			continue
		}
		groups[r.BusinessID] = append(groups[r.BusinessID], point{period: r.Period, sortBy: r.SortPeriod(), tax: *r.TaxAmount})
	}

	results := map[growthKey]float64{}
	for id, seq := range groups {
		sort.SliceStable(seq, func(i, j int) bool {
			return seq[i].sortBy < seq[j].sortBy
		})
		for i := 1; i < len(seq); i++ {
			results[growthKey{business: id, period: seq[i].period}] = e.growth(seq[i-1].tax, seq[i].tax)
		}
	}

	for _, r := range records {
		if r.Status != model.StatusValid {
			continue
		}
		if g, ok := results[growthKey{business: r.BusinessID, period: r.Period}]; ok {
			r.Growth = &g
		}
	}
}

// growth 环比增长率，上期为 0 时：本期 > 0 记为 1，否则 0
func (e *Enricher) growth(prev, cur float64) float64 {
	var g float64
	switch {
	case prev == 0 && cur > 0:
		g = 1
	case prev == 0:
		g = 0
	default:
		g = (cur - prev) / prev
	}
	return clamp(g, e.rules.GrowthMin, e.rules.GrowthMax)
}

func (e *Enricher) condition(r *model.BusinessRecord) model.Condition {
	if r.Status != model.StatusValid {
		return model.ConditionNonCompliant
	}
	if r.Growth == nil {
		return model.ConditionNormal
	}
	g := *r.Growth
	if g < 0 {
		g = -g
	}
	if g >= e.rules.AnomalyThreshold {
		return model.ConditionAnomalous
	}
	return model.ConditionNormal
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
