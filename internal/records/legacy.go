package records

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// LegacyBillDate is stamped on every bill converted from the old
// "<description> <amount>" text format.
const LegacyBillDate = "2025-01-01"

var legacyAmount = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// IsLegacyBillList reports whether a stored bills list uses the old text
// format. Only the first element is inspected.
func IsLegacyBillList(entries []interface{}) bool {
	if len(entries) == 0 {
		return false
	}
	_, ok := entries[0].(string)
	return ok
}

// MigrateLegacyBills converts every entry of a legacy bills list. Ids are
// assigned from 1 in list order. A bad entry never aborts the conversion.
func MigrateLegacyBills(entries []interface{}) []Bill {
	bills := make([]Bill, 0, len(entries))
	for i, entry := range entries {
		text, ok := entry.(string)
		if !ok {
			text = fmt.Sprint(entry)
		}
		bills = append(bills, ParseLegacyBill(i+1, text))
	}
	return bills
}

// ParseLegacyBill splits entry on its last whitespace boundary. A trailing
// non-negative decimal becomes the amount; otherwise the whole entry is the
// description and the amount is zero.
func ParseLegacyBill(id int, entry string) Bill {
	bill := Bill{
		ID:          id,
		Description: entry,
		Date:        LegacyBillDate,
		Status:      BillPending,
	}

	cut := strings.LastIndexFunc(entry, unicode.IsSpace)
	if cut < 0 {
		return bill
	}
	_, width := utf8.DecodeRuneInString(entry[cut:])
	token := entry[cut+width:]
	if !legacyAmount.MatchString(token) {
		return bill
	}
	amount, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return bill
	}

	bill.Amount = amount
	bill.Description = strings.TrimSpace(entry[:cut])
	return bill
}
