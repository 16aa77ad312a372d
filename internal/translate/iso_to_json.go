package translate

import (
	"fmt"
	"strings"

	"github.com/pride-innovation/atm-gateway/internal/iso"
)

// consumedTopLevelFields lists every field number IsoToJson maps onto a
// named document key; everything else present in the message falls through
// to rawFields.
var consumedTopLevelFields = map[int]bool{
	2: true, 3: true, 4: true, 7: true, 11: true, 12: true, 13: true,
	32: true, 37: true, 38: true, 39: true, 41: true, 42: true, 43: true,
	44: true, 48: true, 49: true, 54: true, 55: true, 62: true, 64: true,
	102: true, 103: true, 123: true, 127: true,
}

// IsoToJson is C4: converts a parsed ISO message into the canonical JSON
// document sent to the ESB. Every key is conditionally present iff its
// source field was present in msg (spec.md §4.4).
func IsoToJson(msg *iso.Message) Document {
	doc := Document{"messageType": msg.MTI}

	if v, ok := msg.Get(2); ok {
		doc["cardNumber"] = maskPAN(v.Text)
		doc["accountNumber"] = v.Text
	}
	if v, ok := msg.Get(3); ok {
		doc["processingCode"] = v.Text
		doc["transactionType"] = TransactionType(v.Text)
	}
	if v, ok := msg.Get(4); ok {
		doc["amountMinor"] = v.Text
		major := scaleMinorToMajor(v.Text)
		doc["amount"] = major
		doc["amountValue"] = major
	}
	if v, ok := msg.Get(7); ok {
		if expanded, fixed := expandTransmissionDateTime(v.Text); fixed {
			doc["transmissionDateTime"] = expanded
		} else {
			doc["transmissionDateTime"] = v.Text
		}
	}
	if v, ok := msg.Get(11); ok {
		doc["stan"] = v.Text
	}
	if v, ok := msg.Get(12); ok {
		doc["timeLocal"] = v.Text
	}
	if v, ok := msg.Get(13); ok {
		doc["dateLocal"] = v.Text
	}
	if v, ok := msg.Get(32); ok {
		doc["acquiringInstitutionId"] = v.Text
	}
	if v, ok := msg.Get(37); ok {
		doc["rrn"] = v.Text
	}
	if v, ok := msg.Get(38); ok {
		doc["authorizationCode"] = v.Text
	}
	if v, ok := msg.Get(39); ok {
		doc["responseCode"] = v.Text
	}
	if v, ok := msg.Get(41); ok {
		doc["terminalId"] = strings.TrimSpace(v.Text)
	}
	if v, ok := msg.Get(42); ok {
		doc["merchantId"] = v.Text
	}
	if v, ok := msg.Get(43); ok {
		doc["merchantInfo"] = v.Text
	}
	if v, ok := msg.Get(44); ok {
		doc["additionalResponseData"] = v.Text
	}
	if v, ok := msg.Get(49); ok {
		doc["currencyCode"] = v.Text
	}
	if v, ok := msg.Get(54); ok {
		doc["balanceData"] = v.Text
	}
	if v, ok := msg.Get(48); ok {
		doc["miniStatement"] = v.Text
	} else if v, ok := msg.Get(62); ok {
		doc["miniStatement"] = v.Text
	}
	if v, ok := msg.Get(102); ok {
		doc["fromAccount"] = v.Text
	}
	if v, ok := msg.Get(103); ok {
		doc["toAccount"] = v.Text
	}
	if v, ok := msg.Get(123); ok {
		doc["privateData"] = v.Text
	}
	if v, ok := msg.Get(55); ok {
		doc["emvDataBase64"] = fieldToRaw(v)
	}
	if v, ok := msg.Get(64); ok {
		doc["macBase64"] = fieldToRaw(v)
	}

	rawFields := map[string]string{}
	for _, n := range msg.PresentFields() {
		if consumedTopLevelFields[n] {
			if n == 127 {
				if fv, ok := msg.Get(127); ok && fv.Nested != nil {
					for _, sub := range fv.Nested.PresentFields() {
						rawFields[fmt.Sprintf("127.%d", sub)] = fieldToRaw(fv.Nested.Fields[sub])
					}
				}
			}
			continue
		}
		rawFields[fmt.Sprintf("%d", n)] = fieldToRaw(msg.Fields[n])
	}
	if len(rawFields) > 0 {
		doc["rawFields"] = rawFields
	}

	return doc
}
