package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/models"
)

var day = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// flat returns a bar whose typical price equals price.
func flat(ts time.Time, price, volume float64) models.MBar {
	return models.MBar{Symbol: "TEST", Timestamp: ts, Open: price, High: price, Low: price, Close: price, Volume: volume}
}

func build(t *testing.T, bars []models.MBar, width time.Duration, margin float64) *models.MRaindrop {
	t.Helper()
	r, err := NewRaindropEngine(1000).Build("TEST", bars, width, margin)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return r
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestVWAPDriftClassifiesUp(t *testing.T) {
	bars := []models.MBar{
		flat(at(9, 30), 100, 10),
		flat(at(9, 35), 102, 20),
		flat(at(9, 45), 101, 10),
		flat(at(9, 50), 103, 20),
	}
	r := build(t, bars, 30*time.Minute, 0.5)

	if len(r.Candles) != 1 {
		t.Fatalf("got %d candles, want 1", len(r.Candles))
	}
	c := r.Candles[0]
	if !near(*c.VWAPOpen, (10*100+20*102)/30.0) || !near(*c.VWAPClose, (10*101+20*103)/30.0) {
		t.Errorf("unexpected VWAPs %v / %v", *c.VWAPOpen, *c.VWAPClose)
	}
	if c.Color != models.ColorUp {
		t.Errorf("color = %s, want green", c.Color)
	}
	if !c.Start.Equal(at(9, 30)) || !c.End.Equal(at(10, 0)) {
		t.Errorf("bin bounds %s - %s", c.Start, c.End)
	}

	headline, err := Headline(r)
	if err != nil {
		t.Fatalf("Headline failed: %v", err)
	}
	if !near(headline.VWAPClose-headline.VWAPOpen, 1.0) {
		t.Errorf("headline diff = %v", headline.VWAPClose-headline.VWAPOpen)
	}

	r = build(t, bars, 30*time.Minute, 1.5)
	if r.Candles[0].Color != models.ColorNeutral {
		t.Errorf("diff below margin should be neutral, got %s", r.Candles[0].Color)
	}
}

func TestDriftDown(t *testing.T) {
	bars := []models.MBar{flat(at(10, 0), 105, 5), flat(at(10, 20), 100, 5)}
	r := build(t, bars, 30*time.Minute, 0.1)
	if r.Candles[0].Color != models.ColorDown {
		t.Errorf("color = %s, want red", r.Candles[0].Color)
	}
}

func TestMarginBoundaryIsNeutral(t *testing.T) {
	up := []models.MBar{flat(at(10, 0), 100, 1), flat(at(10, 15), 100.5, 1)}
	down := []models.MBar{flat(at(10, 0), 100.5, 1), flat(at(10, 15), 100, 1)}

	cases := []struct {
		name   string
		bars   []models.MBar
		margin float64
		want   models.BinColor
	}{
		{"up at margin", up, 0.5, models.ColorNeutral},
		{"down at margin", down, 0.5, models.ColorNeutral},
		{"up past margin", up, 0.25, models.ColorUp},
		{"down past margin", down, 0.25, models.ColorDown},
		{"zero margin", up, 0, models.ColorUp},
	}
	for _, tc := range cases {
		r := build(t, tc.bars, 30*time.Minute, tc.margin)
		if got := r.Candles[0].Color; got != tc.want {
			t.Errorf("%s: color = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestSparseBarsAcrossBinBoundary(t *testing.T) {
	bars := []models.MBar{flat(at(9, 0), 100, 50), flat(at(9, 35), 101, 60)}
	r := build(t, bars, 30*time.Minute, 0.1)

	if len(r.Candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(r.Candles))
	}
	for i, c := range r.Candles {
		if c.Color != models.ColorNeutral {
			t.Errorf("candle %d color = %s, want blue", i, c.Color)
		}
	}
	if r.Candles[0].VWAPClose != nil || r.Candles[1].VWAPClose != nil {
		t.Errorf("second halves should be empty")
	}
	if len(r.Ticks) != 2 || r.Ticks[0].Split != models.SplitOpen || r.Ticks[1].Split != models.SplitOpen {
		t.Errorf("both bars belong to a first half: %+v", r.Ticks)
	}

	_, err := Headline(r)
	var incomplete *helpers.IncompleteBinError
	if !errors.As(err, &incomplete) {
		t.Fatalf("expected IncompleteBinError, got %v", err)
	}
}

func TestParityIsGlobalAcrossGaps(t *testing.T) {
	bars := []models.MBar{flat(at(9, 0), 100, 10), flat(at(10, 20), 100, 10)}
	r := build(t, bars, 30*time.Minute, 0.1)

	if len(r.Ticks) != 2 {
		t.Fatalf("got %d ticks", len(r.Ticks))
	}
	if r.Ticks[1].Split != models.SplitClose {
		t.Errorf("10:20 lies in the second half of the 10:00 bin, got split %d", r.Ticks[1].Split)
	}
	if !r.Ticks[1].BinStart.Equal(at(10, 0)) {
		t.Errorf("bin start = %s", r.Ticks[1].BinStart)
	}
}

func TestFlatBinsAreNeutral(t *testing.T) {
	var bars []models.MBar
	for bin := 0; bin < 4; bin++ {
		price := 100 + float64(bin)
		start := at(9, 30).Add(time.Duration(bin) * 30 * time.Minute)
		for i := 0; i < 20; i++ {
			bars = append(bars, flat(start.Add(time.Duration(i)*time.Minute+30*time.Second), price, float64(100+i)))
		}
	}
	r := build(t, bars, 30*time.Minute, 0.1)

	if len(r.Candles) != 4 {
		t.Fatalf("got %d candles", len(r.Candles))
	}
	for i, c := range r.Candles {
		if c.Color != models.ColorNeutral {
			t.Errorf("candle %d color = %s", i, c.Color)
		}
	}
}

func randomBars(seed int64, n int) []models.MBar {
	rng := rand.New(rand.NewSource(seed))
	price := 100.0
	var bars []models.MBar
	ts := at(9, 30)
	for i := 0; i < n; i++ {
		open := price
		close := open + rng.Float64()*2 - 1
		high := math.Max(open, close) + rng.Float64()
		low := math.Min(open, close) - rng.Float64()
		volume := float64(rng.Intn(5000))
		if i%17 == 0 {
			volume = 0
		}
		bars = append(bars, models.MBar{Symbol: "TEST", Timestamp: ts, Open: open, High: high, Low: low, Close: close, Volume: volume})
		price = close
		ts = ts.Add(time.Duration(1+rng.Intn(3)) * time.Minute)
	}
	return bars
}

func TestVolumeConservation(t *testing.T) {
	bars := randomBars(7, 390)
	r := build(t, bars, 15*time.Minute, 0.1)

	total := 0.0
	for _, b := range bars {
		total += b.Volume
	}
	binned := 0.0
	for i, c := range r.Candles {
		if c.Volume <= 0 {
			t.Errorf("candle %d has non-positive volume", i)
		}
		if r.Volumes[i].Volume != c.Volume {
			t.Errorf("volume bar %d differs from candle", i)
		}
		binned += c.Volume
	}
	if math.Abs(total-binned) > 1e-6 {
		t.Errorf("binned volume %v, input volume %v", binned, total)
	}
}

func TestVWAPWithinHalfTypicalRange(t *testing.T) {
	bars := randomBars(11, 300)
	width := 20 * time.Minute
	r := build(t, bars, width, 0.1)

	resampler := NewTimeSeriesResampler(bars[0].Timestamp, width)
	type key struct {
		bin   int64
		split int
	}
	lo := map[key]float64{}
	hi := map[key]float64{}
	for _, b := range bars {
		if b.Volume <= 0 {
			continue
		}
		k := key{resampler.BinIndex(b.Timestamp), resampler.Parity(b.Timestamp)}
		typical := (b.Open + b.High + b.Low + b.Close) / 4
		if v, ok := lo[k]; !ok || typical < v {
			lo[k] = typical
		}
		if v, ok := hi[k]; !ok || typical > v {
			hi[k] = typical
		}
	}

	for _, c := range r.Candles {
		idx := resampler.BinIndex(c.Start)
		for split, vwap := range []*float64{c.VWAPOpen, c.VWAPClose} {
			if vwap == nil {
				continue
			}
			k := key{idx, split}
			if *vwap < lo[k]-1e-9 || *vwap > hi[k]+1e-9 {
				t.Errorf("bin %s half %d: VWAP %v outside [%v, %v]", c.Start, split, *vwap, lo[k], hi[k])
			}
		}
	}
}

func TestColorScaleInvariance(t *testing.T) {
	bars := randomBars(3, 200)
	scaled := make([]models.MBar, len(bars))
	for i, b := range bars {
		b.Volume *= 8
		scaled[i] = b
	}

	a := build(t, bars, 30*time.Minute, 0.1)
	b := build(t, scaled, 30*time.Minute, 0.1)
	if len(a.Candles) != len(b.Candles) {
		t.Fatalf("candle counts differ: %d vs %d", len(a.Candles), len(b.Candles))
	}
	for i := range a.Candles {
		if a.Candles[i].Color != b.Candles[i].Color {
			t.Errorf("candle %d color changed under scaling", i)
		}
		if a.Candles[i].VWAPOpen != nil && math.Abs(*a.Candles[i].VWAPOpen-*b.Candles[i].VWAPOpen) > 1e-9 {
			t.Errorf("candle %d VWAP open changed under scaling", i)
		}
	}
	if len(a.Ticks) != len(b.Ticks) {
		t.Errorf("tick counts differ under scaling: %d vs %d", len(a.Ticks), len(b.Ticks))
	}
}

func TestRepetitionWeights(t *testing.T) {
	bars := []models.MBar{
		flat(at(9, 30), 100, 1000), // divider 1
		flat(at(9, 31), 100, 2.5),  // rounds half to even
		flat(at(9, 32), 100, 0.4),  // weight 0, excluded
		flat(at(9, 33), 100, 3.5),
	}
	r := build(t, bars, 30*time.Minute, 0.1)

	want := []int{1000, 2, 4}
	if len(r.Ticks) != len(want) {
		t.Fatalf("got %d ticks, want %d", len(r.Ticks), len(want))
	}
	for i, w := range want {
		if r.Ticks[i].Weight != w {
			t.Errorf("tick %d weight = %d, want %d", i, r.Ticks[i].Weight, w)
		}
	}
	if got := r.Candles[0].Halves[models.SplitOpen].Count; got != 1006 {
		t.Errorf("half count = %d, want 1006", got)
	}
}

func TestCandleAggregation(t *testing.T) {
	bars := []models.MBar{
		{Timestamp: at(9, 31), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Timestamp: at(9, 30), Open: 9, High: 10, Low: 8, Close: 10, Volume: 50},
		{Timestamp: at(9, 50), Open: 11, High: 15, Low: 10, Close: 8, Volume: 25},
	}
	r := build(t, bars, 30*time.Minute, 0.1)

	c := r.Candles[0]
	if c.Open != 9 || c.High != 15 || c.Low != 8 || c.Close != 8 || c.Volume != 175 || c.Bars != 3 {
		t.Errorf("unexpected candle %+v", c)
	}
	if r.Volumes[0].Color != models.ColorDown {
		t.Errorf("open > close should give a red volume bar")
	}
}

func TestZeroVolumeBinsAreDropped(t *testing.T) {
	bars := []models.MBar{
		flat(at(9, 30), 100, 10),
		flat(at(10, 5), 100, 0),
		flat(at(10, 35), 101, 10),
	}
	r := build(t, bars, 30*time.Minute, 0.1)

	if len(r.Candles) != 2 || !r.Candles[1].Start.Equal(at(10, 30)) {
		t.Fatalf("zero-volume bin not dropped: %+v", r.Candles)
	}
	for _, tick := range r.Ticks {
		if tick.BinStart.Equal(at(10, 0)) {
			t.Errorf("tick emitted for zero-volume bin")
		}
	}
}

func TestBuildErrors(t *testing.T) {
	engine := NewRaindropEngine(0)

	_, err := engine.Build("TEST", nil, 30*time.Minute, 0.1)
	var noData *helpers.NoDataError
	if !errors.As(err, &noData) {
		t.Errorf("empty input: expected NoDataError, got %v", err)
	}

	nan := []models.MBar{{Timestamp: at(9, 30), Open: math.NaN(), High: 1, Low: 1, Close: 1, Volume: 1}, {Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	if _, err := engine.Build("TEST", nan, 30*time.Minute, 0.1); !errors.As(err, &noData) {
		t.Errorf("unusable input: expected NoDataError, got %v", err)
	}

	zero := []models.MBar{flat(at(9, 30), 100, 0), flat(at(9, 31), 100, 0)}
	var empty *helpers.AggregationEmptyError
	if _, err := engine.Build("TEST", zero, 30*time.Minute, 0.1); !errors.As(err, &empty) {
		t.Errorf("zero volume: expected AggregationEmptyError, got %v", err)
	}

	var invalid *helpers.ValidationError
	if _, err := engine.Build("TEST", zero, 30*time.Second, 0.1); !errors.As(err, &invalid) {
		t.Errorf("tiny bin: expected ValidationError, got %v", err)
	}
	if _, err := engine.Build("TEST", zero, 30*time.Minute, -1); !errors.As(err, &invalid) {
		t.Errorf("negative margin: expected ValidationError, got %v", err)
	}
}

func TestTicksCarryBinColor(t *testing.T) {
	bars := []models.MBar{flat(at(9, 30), 100, 10), flat(at(9, 50), 102, 10)}
	r := build(t, bars, 30*time.Minute, 0.1)
	for _, tick := range r.Ticks {
		if tick.Color != models.ColorUp {
			t.Errorf("tick color = %s, want green", tick.Color)
		}
	}
}
