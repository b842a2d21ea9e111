package sms

// GSM 03.38 segment thresholds. One non-GSM character anywhere pushes the
// whole message to UCS-2 and the 70/67 boundaries.
const (
	gsmSingleSegment  = 160
	gsmMultiSegment   = 153
	ucs2SingleSegment = 70
	ucs2MultiSegment  = 67
)

var gsm7Chars = map[rune]struct{}{}

func init() {
	const basic = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
		"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"
	const extension = "^{}\\[~]|€"

	for _, r := range basic + extension {
		gsm7Chars[r] = struct{}{}
	}
}

func isGSM7(r rune) bool {
	_, ok := gsm7Chars[r]
	return ok
}

// CountSegments computes how many SMS transmission units the body occupies.
// An empty body still costs one segment.
func CountSegments(body string) int {
	runes := []rune(body)
	length := len(runes)
	if length == 0 {
		return 1
	}

	single, multi := gsmSingleSegment, gsmMultiSegment
	for _, r := range runes {
		if !isGSM7(r) {
			single, multi = ucs2SingleSegment, ucs2MultiSegment
			break
		}
	}

	if length <= single {
		return 1
	}

	return (length + multi - 1) / multi
}
