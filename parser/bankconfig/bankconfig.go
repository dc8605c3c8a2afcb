/*
Package bankconfig is a direct Go port of
original_source/backend/src/services/bank_configs.py's BANK_CONFIGS
table: per-bank column offsets, date format, encoding, header-skip
count, and sign convention for the credit-card CSV parser.
*/
package bankconfig

// Config describes how to read one bank's credit-card CSV export.
type Config struct {
	Code           string // bank code, e.g. "CATHAY"
	Name           string // display name, e.g. "國泰世華"
	DateColumn     int    // 0-based column index of the transaction date
	DateLayout     string // Go reference-time layout for DateColumn
	DescColumn     int    // merchant/description column index
	AmountColumn   int    // amount column index
	SkipRows       int    // header rows to skip when HeaderMarker is empty
	Encoding       string // "utf-8" or "big5"
	HeaderMarker   string // if set, locate the header row by searching for this substring instead of SkipRows
	SkipNegative   bool   // skip rows whose amount is negative (payment/refund records)
	YearMonthRegex string // regex with two capture groups (year, month) for the bill-header line, empty if the CSV carries a full date
}

// Configs mirrors BANK_CONFIGS verbatim: date formats use Go's
// reference-time layout instead of strftime directives (%m/%d -> 01/02,
// %Y-%m-%d -> 2006-01-02, %Y/%m/%d -> 2006/01/02).
var Configs = map[string]Config{
	"CATHAY": {
		Code: "CATHAY", Name: "國泰世華",
		DateColumn: 0, DateLayout: "01/02",
		DescColumn: 1, AmountColumn: 2,
		SkipRows: 1, Encoding: "utf-8",
		HeaderMarker:   "消費日",
		SkipNegative:   true,
		YearMonthRegex: `(\d{4})/(\d{2})信用卡對帳單`,
	},
	"CTBC": {
		Code: "CTBC", Name: "中國信託",
		DateColumn: 0, DateLayout: "2006-01-02",
		DescColumn: 1, AmountColumn: 2,
		SkipRows: 1, Encoding: "utf-8",
	},
	"ESUN": {
		Code: "ESUN", Name: "玉山銀行",
		DateColumn: 0, DateLayout: "2006/01/02",
		DescColumn: 1, AmountColumn: 2,
		SkipRows: 1, Encoding: "utf-8",
	},
	"TAISHIN": {
		Code: "TAISHIN", Name: "台新銀行",
		DateColumn: 0, DateLayout: "2006/01/02",
		DescColumn: 2, AmountColumn: 3,
		SkipRows: 1, Encoding: "big5",
	},
	"FUBON": {
		Code: "FUBON", Name: "富邦銀行",
		DateColumn: 0, DateLayout: "2006-01-02",
		DescColumn: 1, AmountColumn: 2,
		SkipRows: 1, Encoding: "utf-8",
	},
}

// Supported returns every configured bank, for a caller building a
// "choose your bank" listing.
func Supported() []Config {
	out := make([]Config, 0, len(Configs))
	for _, c := range Configs {
		out = append(out, c)
	}
	return out
}

// Lookup returns bankCode's Config, or false if unconfigured.
func Lookup(bankCode string) (Config, bool) {
	c, ok := Configs[bankCode]
	return c, ok
}
