// SPDX-License-Identifier: MIT
package mfcc

import (
	"bufio"
	"io"
	"strconv"
)

// WriteText writes one line per vector with coefficients in %e notation
// separated by ", ".
func (s Sequence) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var num []byte
	for _, v := range s {
		for i, c := range v {
			if i > 0 {
				bw.WriteString(", ")
			}
			num = strconv.AppendFloat(num[:0], c, 'e', 6, 64)
			bw.Write(num)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
