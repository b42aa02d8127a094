package search

import (
	"fmt"
	"strconv"
)

func (r Result) String() string {
	return fmt.Sprintf("{Offset:%d Score:%.6f}", r.Offset, r.Score)
}

func (r Result) Header() []string {
	return []string{"offset", "real", "imag"}
}

func (r Result) Record() []string {
	return []string{
		strconv.Itoa(r.Offset),
		strconv.FormatFloat(real(r.Score), 'f', -1, 64),
		strconv.FormatFloat(imag(r.Score), 'f', -1, 64),
	}
}

func (r Result) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"offset":%d,"real":%s,"imag":%s}`,
		r.Offset,
		strconv.FormatFloat(real(r.Score), 'g', -1, 64),
		strconv.FormatFloat(imag(r.Score), 'g', -1, 64),
	)), nil
}
