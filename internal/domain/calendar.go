package domain

import "time"

// Calendar define qué días son hábiles. Sábados y domingos nunca lo son;
// Holidays añade festivos explícitos (clave "2006-01-02").
type Calendar struct {
	Holidays map[string]struct{}
}

// NewCalendar crea un calendario con los festivos dados.
func NewCalendar(holidays ...time.Time) Calendar {
	c := Calendar{Holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.Holidays[h.Format(DateLayout)] = struct{}{}
	}
	return c
}

// IsBusinessDay devuelve true si t no es fin de semana ni festivo.
func (c Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.Holidays[t.Format(DateLayout)]
	return !holiday
}

// LastBusinessDayOfMonth devuelve el último día hábil del mes de t.
func (c Calendar) LastBusinessDayOfMonth(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	for !c.IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// BusinessMonthEnds devuelve el último día hábil de cada mes cuyo month-end
// cae dentro de [from, to], en orden creciente.
func (c Calendar) BusinessMonthEnds(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	from = truncateDay(from)
	to = truncateDay(to)

	var out []time.Time
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(to) {
		me := c.LastBusinessDayOfMonth(cur)
		if !me.Before(from) && !me.After(to) {
			out = append(out, me)
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
