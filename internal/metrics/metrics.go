// Package metrics computes the windowed training indicators from the
// normalized set stream: strength trend, stimulus volume, fatigue
// accumulation, efficiency index, consistency, frequency score, and max gap.
//
// Every indicator degrades to a documented neutral value when the log is too
// small to assess — the engine never returns an error.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/liftstate/internal/models"
)

// Statuses reported by the engine.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"

	StimulusLow  = "low"
	StimulusOK   = "ok"
	StimulusHigh = "high"

	FatigueLow      = "low"
	FatigueModerate = "moderate"
	FatigueHigh     = "high"

	EfficiencyPositive = "positive"
	EfficiencyNegative = "negative"
	EfficiencyNeutral  = "neutral"

	ConsistencySteady   = "steady"
	ConsistencyVariable = "variable"
	ConsistencyErratic  = "erratic"

	FrequencyGreen  = "green"
	FrequencyYellow = "yellow"
	FrequencyRed    = "red"

	GapOK      = "ok"
	GapWarning = "warning"
	GapBreak   = "break"

	ModeReturn      = "Return"
	ModeMaintenance = "Maintenance"
	ModeStable      = "Stable"
)

// ValidPeriod reports whether a period length is one of the supported
// window sizes.
func ValidPeriod(days int) bool {
	switch days {
	case 7, 14, 21, 28:
		return true
	}
	return false
}

// DefaultPeriodDays is the trailing window used when a request names none.
const DefaultPeriodDays = 14

// Indicator is one metric with its categorical status and display text.
type Indicator struct {
	Value   float64 `json:"value"`
	Status  string  `json:"status"`
	Tooltip string  `json:"tooltip"`
}

// Report holds every indicator for one analytics request.
type Report struct {
	PeriodDays     int       `json:"periodDays"`
	StrengthTrend  Indicator `json:"strengthTrend"`
	StimulusVolume Indicator `json:"stimulusVolume"`
	Fatigue        Indicator `json:"fatigue"`
	Efficiency     Indicator `json:"efficiency"`
	Consistency    Indicator `json:"consistency"`
	Frequency      Indicator `json:"frequency"`
	MaxGap         Indicator `json:"maxGap"`
	Mode           string    `json:"mode"`
}

// Engine computes reports against a fixed thresholds configuration.
type Engine struct {
	th models.Thresholds
}

func NewEngine(th models.Thresholds) *Engine {
	return &Engine{th: th}
}

// Compute builds the full report. sets is the whole analytics-eligible
// history; periodDays selects the trailing window; anchors restricts the
// strength trend to the named exercises (empty means all).
func (e *Engine) Compute(sets []models.Set, periodDays int, anchors []string, now time.Time) Report {
	if !ValidPeriod(periodDays) {
		periodDays = DefaultPeriodDays
	}
	r := Report{PeriodDays: periodDays}

	allDays := distinctDays(sets)
	if len(allDays) < 2 {
		// Too little history to assess anything.
		r.StrengthTrend = neutralTrend(periodDays)
		r.StimulusVolume = Indicator{Status: StimulusOK, Tooltip: "No training stimulus recorded yet."}
		r.Fatigue = Indicator{Status: FatigueLow, Tooltip: "Not enough data to assess fatigue."}
		r.Efficiency = Indicator{Status: EfficiencyNeutral, Tooltip: "Not enough data to assess efficiency."}
		r.Consistency = Indicator{Value: 1.0, Status: ConsistencySteady, Tooltip: "Fewer than two weeks logged; consistency assumed."}
		r.Frequency = e.frequency(nil, periodDays)
		r.MaxGap = Indicator{Status: GapOK, Tooltip: "No gaps yet."}
		r.Mode = ModeStable
		return r
	}

	curFrom := now.AddDate(0, 0, -periodDays)
	priorFrom := now.AddDate(0, 0, -2*periodDays)
	cur := window(sets, curFrom, now)
	prior := window(sets, priorFrom, curFrom)
	last7 := window(sets, now.AddDate(0, 0, -7), now)

	r.MaxGap = e.maxGap(allDays)
	r.Frequency = e.frequency(distinctDays(cur), periodDays)

	if len(cur) == 0 {
		// Nothing in the window: the five period indicators report their
		// neutral defaults; frequency and gap stay meaningful.
		r.StrengthTrend = neutralTrend(periodDays)
		r.StimulusVolume = Indicator{Status: StimulusOK, Tooltip: "No sets in the current period."}
		r.Fatigue = Indicator{Status: FatigueLow, Tooltip: "No recent stimulus; fatigue low."}
		r.Efficiency = Indicator{Status: EfficiencyNeutral, Tooltip: "No sets in the current period."}
		r.Consistency = Indicator{Value: 1.0, Status: ConsistencySteady, Tooltip: "No sets in the current period."}
		r.Mode = e.mode(r)
		return r
	}

	st := e.strengthTrend(cur, prior, anchors, periodDays)
	sv := e.stimulusVolume(cur, prior, periodDays)
	r.StrengthTrend = st
	r.StimulusVolume = sv
	r.Fatigue = e.fatigue(last7, st.Value)
	r.Efficiency = e.efficiency(st.Value, sv.Value)
	r.Consistency = e.consistency(cur)
	r.Mode = e.mode(r)
	return r
}

func neutralTrend(periodDays int) Indicator {
	return Indicator{
		Status:  TrendStable,
		Tooltip: fmt.Sprintf("Not enough history to compare the last %d days against the period before.", periodDays),
	}
}

// strengthTrend compares the median of per-exercise medians of per-day max
// e1RM between the current and prior periods, as a percentage.
func (e *Engine) strengthTrend(cur, prior []models.Set, anchors []string, periodDays int) Indicator {
	anchorSet := make(map[string]bool, len(anchors))
	for _, id := range anchors {
		anchorSet[id] = true
	}

	curMed, curOK := medianOfExerciseMedians(cur, anchorSet)
	priorMed, priorOK := medianOfExerciseMedians(prior, anchorSet)

	var st float64
	if curOK && priorOK && priorMed > 0 {
		st = (curMed - priorMed) / priorMed * 100
	}

	status := TrendStable
	switch {
	case st > e.th.TrendStabilityPct:
		status = TrendUp
	case st < -e.th.TrendStabilityPct:
		status = TrendDown
	}
	return Indicator{
		Value:   round1(st),
		Status:  status,
		Tooltip: fmt.Sprintf("Estimated strength moved %+.1f%% vs the prior %d days.", st, periodDays),
	}
}

// medianOfExerciseMedians: per exercise, the median of per-day max e1RM;
// then the median across exercises. Only e1RM-bearing sets participate.
func medianOfExerciseMedians(sets []models.Set, anchors map[string]bool) (float64, bool) {
	dayMax := make(map[string]map[time.Time]float64)
	for _, s := range sets {
		if s.E1RM <= 0 {
			continue
		}
		if len(anchors) > 0 && !anchors[s.ExerciseID] {
			continue
		}
		if dayMax[s.ExerciseID] == nil {
			dayMax[s.ExerciseID] = make(map[time.Time]float64)
		}
		d := s.Day()
		if s.E1RM > dayMax[s.ExerciseID][d] {
			dayMax[s.ExerciseID][d] = s.E1RM
		}
	}
	if len(dayMax) == 0 {
		return 0, false
	}

	perExercise := make([]float64, 0, len(dayMax))
	for _, days := range dayMax {
		vals := make([]float64, 0, len(days))
		for _, v := range days {
			vals = append(vals, v)
		}
		perExercise = append(perExercise, median(vals))
	}
	return median(perExercise), true
}

// stimulusVolume sums hard-set intensity over the period and bands it by
// ratio against the prior period.
func (e *Engine) stimulusVolume(cur, prior []models.Set, periodDays int) Indicator {
	curSV := hardSetVolume(cur)
	priorSV := hardSetVolume(prior)

	status := StimulusOK
	if priorSV > 0 {
		switch ratio := curSV / priorSV; {
		case ratio < e.th.StimulusLowRatio:
			status = StimulusLow
		case ratio > e.th.StimulusHighRatio:
			status = StimulusHigh
		}
	}
	return Indicator{
		Value:   round1(curSV),
		Status:  status,
		Tooltip: fmt.Sprintf("Accumulated %.1f hard-set stimulus in %d days (prior period: %.1f).", curSV, periodDays, priorSV),
	}
}

func hardSetVolume(sets []models.Set) float64 {
	var sv float64
	for _, s := range sets {
		if s.HardSet {
			sv += s.Intensity
		}
	}
	return sv
}

// fatigue relates the trailing 7-day stimulus to the absolute trend: high
// stimulus with flat progress reads as accumulating fatigue.
func (e *Engine) fatigue(last7 []models.Set, trendPct float64) Indicator {
	fa := hardSetVolume(last7) / (math.Abs(trendPct) + e.th.FatigueEpsilon)

	status := FatigueHigh
	switch {
	case fa < e.th.FatigueModerate:
		status = FatigueLow
	case fa < e.th.FatigueHigh:
		status = FatigueModerate
	}
	return Indicator{
		Value:   round1(fa),
		Status:  status,
		Tooltip: fmt.Sprintf("Fatigue index %.1f from the last 7 days of hard sets.", fa),
	}
}

// efficiency is the primary KPI: trend gained per unit of stimulus.
func (e *Engine) efficiency(trendPct, sv float64) Indicator {
	var ei float64
	if sv > 0 {
		ei = trendPct / sv
	}
	status := EfficiencyNeutral
	switch {
	case ei > e.th.EfficiencyNeutral:
		status = EfficiencyPositive
	case ei < -e.th.EfficiencyNeutral:
		status = EfficiencyNegative
	}
	return Indicator{
		Value:   math.Round(ei*100) / 100,
		Status:  status,
		Tooltip: fmt.Sprintf("%.2f%% strength change per unit of stimulus.", ei),
	}
}

// consistency measures week-to-week volume stability inside the period.
// One ISO week of data cannot show instability, so it scores 1.0.
func (e *Engine) consistency(cur []models.Set) Indicator {
	weekly := make(map[string]float64)
	for _, s := range cur {
		year, week := s.Day().ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		weekly[key] += s.TotalLoadKg * float64(s.Reps)
	}

	if len(weekly) < 2 {
		return Indicator{Value: 1.0, Status: ConsistencySteady, Tooltip: "Fewer than two weeks in the period; consistency assumed."}
	}

	vols := make([]float64, 0, len(weekly))
	for _, v := range weekly {
		vols = append(vols, v)
	}
	mean := sum(vols) / float64(len(vols))
	c := 1.0
	if mean > 0 {
		c = math.Max(0, 1-stdev(vols, mean)/mean)
	}

	status := ConsistencyErratic
	switch {
	case c >= 0.8:
		status = ConsistencySteady
	case c >= 0.5:
		status = ConsistencyVariable
	}
	return Indicator{
		Value:   math.Round(c*100) / 100,
		Status:  status,
		Tooltip: fmt.Sprintf("Weekly volume consistency %.2f across %d weeks.", c, len(vols)),
	}
}

// frequency scores actual training days against the weekly session target
// scaled to the period length.
func (e *Engine) frequency(daysInPeriod []time.Time, periodDays int) Indicator {
	target := int(math.Ceil(float64(periodDays) / 7 * float64(e.th.SessionsPerWeekTarget)))
	actual := len(daysInPeriod)

	var fs float64
	if target > 0 {
		fs = float64(actual) / float64(target)
	}
	status := FrequencyRed
	switch {
	case fs >= e.th.FrequencyGreen:
		status = FrequencyGreen
	case fs >= e.th.FrequencyYellow:
		status = FrequencyYellow
	}
	return Indicator{
		Value:   math.Round(fs*100) / 100,
		Status:  status,
		Tooltip: fmt.Sprintf("%d of %d target sessions in %d days.", actual, target, periodDays),
	}
}

// maxGap is the largest span between consecutive training days across the
// entire history, independent of input row order.
func (e *Engine) maxGap(allDays []time.Time) Indicator {
	var gap int
	for i := 1; i < len(allDays); i++ {
		d := int(allDays[i].Sub(allDays[i-1]).Hours() / 24)
		if d > gap {
			gap = d
		}
	}
	status := GapBreak
	switch {
	case gap <= e.th.GapOKDays:
		status = GapOK
	case gap <= e.th.GapWarningDays:
		status = GapWarning
	}
	return Indicator{
		Value:   float64(gap),
		Status:  status,
		Tooltip: fmt.Sprintf("Longest break between sessions: %d days.", gap),
	}
}

// mode classifies the training phase, in priority order: a long break wins,
// then low frequency, then stable.
func (e *Engine) mode(r Report) string {
	switch {
	case int(r.MaxGap.Value) > e.th.GapWarningDays:
		return ModeReturn
	case r.Frequency.Value < e.th.FrequencyYellow:
		return ModeMaintenance
	default:
		return ModeStable
	}
}

// --- small numeric helpers ---

func distinctDays(sets []models.Set) []time.Time {
	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, s := range sets {
		d := s.Day()
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// window returns sets with from < day(set) <= to.
func window(sets []models.Set, from, to time.Time) []models.Set {
	var out []models.Set
	for _, s := range sets {
		d := s.Day()
		if d.After(from) && !d.After(to) {
			out = append(out, s)
		}
	}
	return out
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sum(vals []float64) float64 {
	var t float64
	for _, v := range vals {
		t += v
	}
	return t
}

func stdev(vals []float64, mean float64) float64 {
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
