package recfile

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Field widths mirror student_file.h's char-array bounds. They are not
// encoded on disk (StudentCodec is delimited, not fixed-width) but still
// bound what Encode will accept, matching the original's strncpy truncation
// at each field.
const (
	rollNoWidth     = 20
	nameWidth       = 100
	batchWidth      = 10
	degreeWidth     = 20
	deptWidth       = 10
	categWidth      = 10
	sexWidth        = 2
	fatherNameWidth = 100
	birthdateWidth  = 20
	addressWidth    = 200
	cityWidth       = 50
	stateWidth      = 50
	pincodeWidth    = 10
)

const studentFieldCount = 14

// Record is the student schema student_file.h's StudentRecord declares:
// roll number, name, and the admissions/demographic fields the original
// registrar's office tracked alongside them. RollNo stays a string (the
// original stores it as char[20]) since it doubles as the index's
// fixed-width key.
type Record struct {
	RollNo     string
	Name       string
	Batch      string
	Degree     string
	Dept       string
	JoinYr     int32
	Categ      string
	Sex        string
	FatherName string
	Birthdate  string
	Address    string
	City       string
	State      string
	Pincode    string
}

// StudentCodec implements Codec[Record] with the same semicolon-delimited
// layout serialize_student/deserialize_student use in student_file.c,
// rather than a fixed-width struct dump: every field but JoinYr is a
// variable-length string, so a delimiter (not byte offsets) separates
// them. The record as a whole is still variable-length, which the
// slotted page layer already stores length-prefixed by its slot entry.
type StudentCodec struct{}

func truncate(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s
}

func (StudentCodec) Encode(v Record) []byte {
	fields := []string{
		truncate(v.RollNo, rollNoWidth),
		truncate(v.Name, nameWidth),
		truncate(v.Batch, batchWidth),
		truncate(v.Degree, degreeWidth),
		truncate(v.Dept, deptWidth),
		strconv.Itoa(int(v.JoinYr)),
		truncate(v.Categ, categWidth),
		truncate(v.Sex, sexWidth),
		truncate(v.FatherName, fatherNameWidth),
		truncate(v.Birthdate, birthdateWidth),
		truncate(v.Address, addressWidth),
		truncate(v.City, cityWidth),
		truncate(v.State, stateWidth),
		truncate(v.Pincode, pincodeWidth),
	}
	return []byte(strings.Join(fields, ";"))
}

func (StudentCodec) Decode(b []byte) (Record, error) {
	fields := strings.Split(string(b), ";")
	if len(fields) != studentFieldCount {
		return Record{}, errors.Errorf("recfile: student record has %d fields, want %d", len(fields), studentFieldCount)
	}
	joinYr, err := strconv.Atoi(fields[5])
	if err != nil {
		return Record{}, errors.Wrap(err, "recfile: student join year")
	}
	return Record{
		RollNo:     fields[0],
		Name:       fields[1],
		Batch:      fields[2],
		Degree:     fields[3],
		Dept:       fields[4],
		JoinYr:     int32(joinYr),
		Categ:      fields[6],
		Sex:        fields[7],
		FatherName: fields[8],
		Birthdate:  fields[9],
		Address:    fields[10],
		City:       fields[11],
		State:      fields[12],
		Pincode:    fields[13],
	}, nil
}

// RollNoKey returns rollNo as the fixed-width, zero-padded byte key the
// am layer indexes on: rollNoWidth bytes, truncated or right-padded with
// zero bytes to fit, the "fixed-width character key" the index's key
// contract requires.
func RollNoKey(rollNo string) []byte {
	key := make([]byte, rollNoWidth)
	copy(key, truncate(rollNo, rollNoWidth))
	return key
}
