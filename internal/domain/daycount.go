package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayCount es la convención para convertir fechas en fracciones de año.
type DayCount string

const (
	// ACT36525 es el default: días reales / 365.25.
	ACT36525  DayCount = "ACT/365.25"
	ACT365F   DayCount = "ACT/365F"
	ACT360    DayCount = "ACT/360"
	Thirty360 DayCount = "30E/360"
)

// ParseDayCount valida el nombre de la convención (case-insensitive).
// Un string vacío devuelve el default ACT/365.25.
func ParseDayCount(s string) (DayCount, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ACT/365.25":
		return ACT36525, nil
	case "ACT/365F", "ACT/365":
		return ACT365F, nil
	case "ACT/360":
		return ACT360, nil
	case "30E/360", "30/360":
		return Thirty360, nil
	default:
		return "", fmt.Errorf("domain.ParseDayCount: unknown convention %q", s)
	}
}

// YearFraction devuelve la fracción de año entre start y end.
// Es negativa si end es anterior a start.
func (dc DayCount) YearFraction(start, end time.Time) float64 {
	switch dc {
	case ACT360:
		return actualDays(start, end) / 360.0
	case ACT365F:
		return actualDays(start, end) / 365.0
	case Thirty360:
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	default:
		return actualDays(start, end) / 365.25
	}
}

// actualDays cuenta días de calendario ignorando la hora del día, para que
// un timestamp a las 16:00 y una fecha a medianoche no den fracciones raras.
func actualDays(start, end time.Time) float64 {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return e.Sub(s).Hours() / 24
}
