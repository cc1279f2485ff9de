package ppm

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		wantErr    bool
		errType    ErrorType
		errContain string
		wantHeader Header
		wantOffset int
	}{
		{
			name:       "single space separators",
			data:       "P6 1 1 255 ",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 1, Height: 1, MaxColorValue: 255},
			wantOffset: 11,
		},
		{
			name:       "newline separated",
			data:       "P6\n640\n480\n255\n",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 640, Height: 480, MaxColorValue: 255},
			wantOffset: 15,
		},
		{
			name:       "mixed whitespace",
			data:       "P6\t12\r34 \n\t 99\n",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 12, Height: 34, MaxColorValue: 99},
			wantOffset: 15,
		},
		{
			name:       "two digit max color value",
			data:       "P6 2 2 99\n",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 2, Height: 2, MaxColorValue: 99},
			wantOffset: 10,
		},
		{
			name:       "one digit max color value",
			data:       "P6 2 2 1\n",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 2, Height: 2, MaxColorValue: 1},
			wantOffset: 9,
		},
		{
			name:       "leading whitespace before height",
			data:       "P6 3  4 255\n",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 3, Height: 4, MaxColorValue: 255},
			wantOffset: 12,
		},
		{
			name:       "pixel byte that looks like whitespace is not consumed",
			data:       "P6 1 1 255\n\n",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 1, Height: 1, MaxColorValue: 255},
			wantOffset: 11,
		},
		{
			name:       "P3 magic",
			data:       "P3 1 1 255 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "bad magic number",
		},
		{
			name:       "lowercase magic",
			data:       "p6 1 1 255 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "bad magic number",
		},
		{
			name:       "PNG signature",
			data:       "\x89PNG\r\n\x1a\n",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "bad magic number",
		},
		{
			name:    "empty input",
			data:    "",
			wantErr: true,
			errType: ErrTypeBadHeader,
		},
		{
			name:    "magic only",
			data:    "P6",
			wantErr: true,
			errType: ErrTypeBadHeader,
		},
		{
			name:       "no whitespace after magic",
			data:       "P61 1 255 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "expected whitespace",
		},
		{
			name:       "comment line",
			data:       "P6\n# made by gimp\n1 1 255\n",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "before width",
		},
		{
			name:       "letter inside width",
			data:       "P6 1x 1 255 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "in width",
		},
		{
			name:       "width without terminating whitespace",
			data:       "P6 640",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "end of data while parsing width",
		},
		{
			name:       "height without terminating whitespace",
			data:       "P6 640 480",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "height",
		},
		{
			name:       "max color value without terminating whitespace",
			data:       "P6 640 480 255",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "max color value",
		},
		{
			name:       "width overflows uint32",
			data:       "P6 4294967296 1 255 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "invalid width",
		},
		{
			name:       "width with too many digits",
			data:       "P6 123456789012 1 255 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "width too large",
		},
		{
			name:       "width with leading zeros",
			data:       "P6 00000000001 1 255 AB",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 1, Height: 1, MaxColorValue: 255},
			wantOffset: 21,
		},
		{
			name:       "zero height",
			data:       "P6 4 000 255 ",
			wantHeader: Header{MagicNumber: [2]byte{'P', '6'}, Width: 4, Height: 0, MaxColorValue: 255},
			wantOffset: 13,
		},
		{
			name:       "max color value with leading zero counts every digit",
			data:       "P6 1 1 0255 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "max color value too large",
		},
		{
			name:       "max color value 256",
			data:       "P6 1 1 256 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "max color value too large",
		},
		{
			name:       "max color value 300",
			data:       "P6 1 1 300 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "max color value too large",
		},
		{
			name:       "max color value with four digits",
			data:       "P6 1 1 1000 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "max color value too large",
		},
		{
			name:       "max color value zero",
			data:       "P6 1 1 0 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "must be positive",
		},
		{
			name:       "max color value 16-bit",
			data:       "P6 1 1 65535 ",
			wantErr:    true,
			errType:    ErrTypeBadHeader,
			errContain: "max color value too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdr, offset, err := ParseHeader([]byte(tt.data))

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeader() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var hdrErr *HeaderError
				if !errors.As(err, &hdrErr) {
					t.Fatalf("error type = %T, want *HeaderError", err)
				}
				if hdrErr.Type != tt.errType {
					t.Errorf("error category = %v, want %v", hdrErr.Type, tt.errType)
				}
				if tt.errContain != "" && !strings.Contains(err.Error(), tt.errContain) {
					t.Errorf("error = %q, should contain %q", err.Error(), tt.errContain)
				}
				if hdr != nil {
					t.Errorf("header = %v, want nil on error", hdr)
				}
				return
			}

			if *hdr != tt.wantHeader {
				t.Errorf("header = %v, want %v", hdr, &tt.wantHeader)
			}
			if offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", offset, tt.wantOffset)
			}
		})
	}
}

func TestParseHeader_MaxColorValueBoundaries(t *testing.T) {
	for _, v := range []string{"1", "9", "10", "99", "100", "199", "200", "249", "250", "255"} {
		if _, _, err := ParseHeader([]byte("P6 1 1 " + v + "\n")); err != nil {
			t.Errorf("maxval %s rejected: %v", v, err)
		}
	}
	for _, v := range []string{"256", "260", "299", "300", "999"} {
		if _, _, err := ParseHeader([]byte("P6 1 1 " + v + "\n")); !IsBadHeader(err) {
			t.Errorf("maxval %s: err = %v, want bad header", v, err)
		}
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) ReadByte() (byte, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	b := r.data[0]
	r.data = r.data[1:]
	return b, nil
}

func TestReadHeader_ReadFailureIsBadFile(t *testing.T) {
	cause := errors.New("device not ready")
	_, _, err := ReadHeader(&failingReader{data: []byte("P6 64"), err: cause})

	if !IsBadFile(err) {
		t.Fatalf("err = %v, want bad file", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("err should wrap the read error")
	}
}

func TestReadHeader_TruncationIsBadHeader(t *testing.T) {
	_, _, err := ReadHeader(&failingReader{data: []byte("P6 64"), err: io.EOF})
	if !IsBadHeader(err) {
		t.Fatalf("err = %v, want bad header", err)
	}
}

func TestReadHeader_StopsAtPixelData(t *testing.T) {
	r := bytes.NewReader([]byte("P6 1 1 255\nABC"))

	_, offset, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if offset != 11 {
		t.Errorf("offset = %d, want 11", offset)
	}

	rest, _ := io.ReadAll(r)
	if string(rest) != "ABC" {
		t.Errorf("remaining = %q, want %q", rest, "ABC")
	}
}

func TestHeaderError_Offset(t *testing.T) {
	_, _, err := ParseHeader([]byte("P6 12 x4 255 "))

	var hdrErr *HeaderError
	if !errors.As(err, &hdrErr) {
		t.Fatalf("err = %v, want *HeaderError", err)
	}
	if hdrErr.Offset != 6 {
		t.Errorf("offset = %d, want 6", hdrErr.Offset)
	}
}

func TestHeader_ExpectedPixelBytes(t *testing.T) {
	h := &Header{Width: 640, Height: 480, MaxColorValue: 255}
	if got := h.ExpectedPixelBytes(); got != 640*480*3 {
		t.Errorf("ExpectedPixelBytes() = %d, want %d", got, 640*480*3)
	}
}
