package nfn

import (
	"strings"

	enc "github.com/usi-icn/nfnd/encoding"
)

// Marker is the distinguished final name component that marks a Name as
// carrying an NFN computation (§4.6).
const Marker = "NFN"

// NetworkNameToNfnStr implements the §4.6 bijection from the Name side:
// given a Name whose final component is the NFN Marker, it returns the
// function-call string formed by joining the remaining components with
// "/", and a prepended-name flag. The flag is always false: no leading
// data prefix (as chosen by the ToDataFirst rewrite, §4.6 point 1) is
// detected or split off; it stays part of the returned string.
func NetworkNameToNfnStr(name enc.Name) (nfnStr string, prepended bool) {
	if len(name) == 0 {
		return "", false
	}
	last := name[len(name)-1]
	if last.Typ != enc.TypeGenericNameComponent || string(last.Val) != Marker {
		return enc.Name(name).String(), false
	}
	body := enc.Name(name[:len(name)-1])
	return body.String(), false
}

// NfnStrToNetworkName is NetworkNameToNfnStr's inverse: it splits s the
// same way an ordinary NDN name string is split (one component per "/"
// separated segment, including every "/" inside "(...)" call arguments,
// so joining the components with "/" restores s) and appends the NFN
// Marker component.
func NfnStrToNetworkName(s string) (enc.Name, error) {
	trimmed := strings.TrimPrefix(s, "/")
	var name enc.Name
	if trimmed != "" {
		for _, part := range strings.Split(trimmed, "/") {
			name = append(name, enc.NewGenericComponent(part))
		}
	}
	name = append(name, enc.NewGenericComponent(Marker))
	return name, nil
}

// IsNfnInterest reports whether name's final component is the NFN Marker
// (the NFN layer's interception test, §4.6 "intercepts Interests whose
// final component equals the NFN marker").
func IsNfnInterest(name enc.Name) bool {
	if len(name) == 0 {
		return false
	}
	last := name[len(name)-1]
	return last.Typ == enc.TypeGenericNameComponent && string(last.Val) == Marker
}
