// report.go - Fortschrittsberichte waehrend des Trainings
//
// Enthält:
// - ReportInterval: Anzahl Iterationen zwischen zwei Berichten
// - Report: Mittlerer Loss, Iterationen/Sekunde und ETA
// - String: Menschenlesbare Ausgabe

package train

import (
	"fmt"
	"log/slog"
	"time"
)

// ReportInterval returns max(floor(8/batchSize*10), 1).
func ReportInterval(batchSize int) int {
	if batchSize <= 0 {
		return 1
	}
	return max(80/batchSize, 1)
}

// Report summarizes the iterations since the previous report.
type Report struct {
	Iter     int
	Row      int64
	Total    int64
	Loss     float64
	ItPerSec float64
	ETA      time.Duration
}

func newReport(iter int, row, lastRow, total int64, losses []float32, elapsed time.Duration) Report {
	r := Report{Iter: iter, Row: row, Total: total, Loss: mean(losses)}
	if elapsed > 0 {
		r.ItPerSec = float64(len(losses)) / elapsed.Seconds()
	}
	if row > lastRow && total > row {
		r.ETA = time.Duration(float64(total-row) / float64(row-lastRow) * float64(elapsed))
	}
	return r
}

// Progress returns the share of rows processed in percent.
func (r Report) Progress() float64 {
	if r.Total <= 0 {
		return 0
	}
	return 100 * float64(r.Row) / float64(r.Total)
}

func (r Report) String() string {
	return fmt.Sprintf("Iter %d (%.1f%%): Train loss %.2f, It/sec %.2f, ETA %s.",
		r.Iter, r.Progress(), r.Loss, r.ItPerSec, r.ETA.Round(time.Second))
}

func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("iter", r.Iter),
		slog.Int64("row", r.Row),
		slog.Float64("loss", r.Loss),
		slog.Float64("it/s", r.ItPerSec),
		slog.Duration("eta", r.ETA),
	)
}

func mean(s []float32) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v)
	}
	return sum / float64(len(s))
}
