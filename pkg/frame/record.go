package frame

// NumFields is the number of text fields in a frame body.
const NumFields = 15

// FieldNames lists the field names in wire order. The names double as the
// JSON keys of a Record.
var FieldNames = [NumFields]string{
	"error_code",
	"scale_in_move",
	"gross_negative",
	"date",
	"time",
	"ident",
	"scale_nr",
	"gross",
	"tara",
	"net",
	"unit",
	"tara_code",
	"scale_area",
	"terminal",
	"check",
}

// Record is one decoded scale reading. All values are the trimmed text of
// the corresponding frame field.
type Record struct {
	ErrorCode     string `json:"error_code"`
	ScaleInMove   string `json:"scale_in_move"`
	GrossNegative string `json:"gross_negative"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Ident         string `json:"ident"`
	ScaleNr       string `json:"scale_nr"`
	Gross         string `json:"gross"`
	Tara          string `json:"tara"`
	Net           string `json:"net"`
	Unit          string `json:"unit"`
	TaraCode      string `json:"tara_code"`
	ScaleArea     string `json:"scale_area"`
	Terminal      string `json:"terminal"`
	Check         string `json:"check"`
}

// newRecord builds a Record from values in wire order.
func newRecord(v [NumFields]string) Record {
	return Record{
		ErrorCode:     v[0],
		ScaleInMove:   v[1],
		GrossNegative: v[2],
		Date:          v[3],
		Time:          v[4],
		Ident:         v[5],
		ScaleNr:       v[6],
		Gross:         v[7],
		Tara:          v[8],
		Net:           v[9],
		Unit:          v[10],
		TaraCode:      v[11],
		ScaleArea:     v[12],
		Terminal:      v[13],
		Check:         v[14],
	}
}

// Values returns the field values in wire order, aligned with FieldNames.
func (r Record) Values() [NumFields]string {
	return [NumFields]string{
		r.ErrorCode,
		r.ScaleInMove,
		r.GrossNegative,
		r.Date,
		r.Time,
		r.Ident,
		r.ScaleNr,
		r.Gross,
		r.Tara,
		r.Net,
		r.Unit,
		r.TaraCode,
		r.ScaleArea,
		r.Terminal,
		r.Check,
	}
}

// Map returns the record as a field name to value map.
func (r Record) Map() map[string]string {
	vals := r.Values()
	m := make(map[string]string, NumFields)
	for i, name := range FieldNames {
		m[name] = vals[i]
	}
	return m
}
