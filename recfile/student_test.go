package recfile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toylabs/toypager/recfile"
)

func TestStudentCodecRoundTrip(t *testing.T) {
	c := recfile.StudentCodec{}
	rec := recfile.Record{
		RollNo:     "2021CS1042",
		Name:       "Ada Lovelace",
		Batch:      "2021",
		Degree:     "BTech",
		Dept:       "CSE",
		JoinYr:     2021,
		Categ:      "GEN",
		Sex:        "F",
		FatherName: "Byron",
		Birthdate:  "1992-05-14",
		Address:    "1 Analytical Engine Rd",
		City:       "London",
		State:      "LDN",
		Pincode:    "10001",
	}

	enc := c.Encode(rec)
	dec, err := c.Decode(enc)
	require.NoError(t, err)
	require.Equal(t, rec, dec)
}

func TestStudentCodecTruncatesOverlongFields(t *testing.T) {
	c := recfile.StudentCodec{}
	rec := recfile.Record{RollNo: "123456789012345678901234567890", Name: "Bo"}
	enc := c.Encode(rec)
	dec, err := c.Decode(enc)
	require.NoError(t, err)
	require.Len(t, dec.RollNo, 20)
	require.Equal(t, "Bo", dec.Name)
}

func TestRollNoKeyIsFixedWidth(t *testing.T) {
	key := recfile.RollNoKey("42")
	require.Len(t, key, 20)
	require.Equal(t, "42", string(key[:2]))
	require.Equal(t, make([]byte, 18), key[2:])
}
