package analyze

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// LineParser turns one stored line into an entry. ok is false when the
// line is not in this parser's format.
type LineParser interface {
	Parse(line string) (entry *model.LogEntry, ok bool)
}

// parsers is the default chain, tried in order: canonical JSON first,
// then the legacy text form. A line matching neither is skipped by the
// caller.
var parsers = []LineParser{
	&canonicalParser{},
	&legacyParser{},
}

// ParseLine runs the default parser chain over one line. Only line
// terminators are trimmed: a legacy line with an empty message ends in
// a space the pattern requires.
func ParseLine(line string) (*model.LogEntry, bool) {
	trimmed := strings.Trim(line, "\r\n")
	if strings.TrimSpace(trimmed) == "" {
		return nil, false
	}
	for _, p := range parsers {
		if e, ok := p.Parse(trimmed); ok {
			return e, true
		}
	}
	return nil, false
}

// canonicalParser reads the single-line JSON format.
type canonicalParser struct {
	pool fastjson.ParserPool
}

// Parse validates the shape of the document before accepting it:
// timestamp, source and message must be strings, level numeric, and
// module must carry string category and filename. This guards against
// truncated lines at the tail of a file written during a crash.
func (p *canonicalParser) Parse(line string) (*model.LogEntry, bool) {
	parser := p.pool.Get()
	defer p.pool.Put(parser)

	v, err := parser.Parse(line)
	if err != nil {
		return nil, false
	}

	tsVal := v.Get("timestamp")
	srcVal := v.Get("source")
	lvlVal := v.Get("level")
	msgVal := v.Get("message")
	modVal := v.Get("module")
	if tsVal == nil || srcVal == nil || lvlVal == nil || msgVal == nil || modVal == nil {
		return nil, false
	}

	ts, err := tsVal.StringBytes()
	if err != nil {
		return nil, false
	}
	src, err := srcVal.StringBytes()
	if err != nil {
		return nil, false
	}
	lvl, err := lvlVal.Int()
	if err != nil {
		return nil, false
	}
	msg, err := msgVal.StringBytes()
	if err != nil {
		return nil, false
	}
	catVal := modVal.Get("category")
	fileVal := modVal.Get("filename")
	if catVal == nil || fileVal == nil {
		return nil, false
	}
	cat, err := catVal.StringBytes()
	if err != nil {
		return nil, false
	}
	file, err := fileVal.StringBytes()
	if err != nil {
		return nil, false
	}

	e := &model.LogEntry{
		Timestamp: string(ts),
		Source:    model.Source(src),
		Level:     model.Level(lvl),
		Message:   string(msg),
		Module: model.ModuleInfo{
			Category: model.Category(cat),
			Filename: string(file),
		},
		TransactionID: string(v.GetStringBytes("transactionId")),
		SessionID:     string(v.GetStringBytes("sessionId")),
	}

	if proc := v.Get("process"); proc != nil {
		e.Process.Type = model.Source(proc.GetStringBytes("type"))
		e.Process.PID = proc.GetInt("pid")
		if tidVal := proc.Get("tid"); tidVal != nil {
			if tid, err := tidVal.Int(); err == nil {
				e.Process.TID = &tid
			}
		}
	}

	if dataVal := v.Get("data"); dataVal != nil {
		if m, ok := decodeValue(dataVal).(map[string]any); ok {
			e.Data = m
		}
	}

	if errVal := v.Get("error"); errVal != nil {
		e.Error = &model.ErrorInfo{
			Message: string(errVal.GetStringBytes("message")),
			Stack:   string(errVal.GetStringBytes("stack")),
		}
	}

	return e, true
}

// decodeValue converts a parsed value into the generic form carried by
// LogEntry.Data.
func decodeValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, err := v.Object()
		if err != nil {
			return nil
		}
		m := make(map[string]any)
		obj.Visit(func(key []byte, val *fastjson.Value) {
			m[string(key)] = decodeValue(val)
		})
		return m
	case fastjson.TypeArray:
		arr, err := v.Array()
		if err != nil {
			return nil
		}
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, decodeValue(item))
		}
		return out
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		f, _ := v.Float64()
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}

// legacyRe matches the older fixed-pattern text form:
//
//	[timestamp] [SOURCE] LEVEL [TYPE:pid] (category:filename) - message
var legacyRe = regexp.MustCompile(`^\[([^\]]+)\] \[(\w+)\] (\w+) \[(\w+):(\d+)\] \(([^:)]+):([^)]*)\) - (.*)$`)

// legacyParser reads the older fixed-pattern text form.
type legacyParser struct{}

func (legacyParser) Parse(line string) (*model.LogEntry, bool) {
	m := legacyRe.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	level, err := model.ParseLevel(m[3])
	if err != nil {
		return nil, false
	}
	pid, err := strconv.Atoi(m[5])
	if err != nil {
		return nil, false
	}

	return &model.LogEntry{
		Timestamp: m[1],
		Source:    model.Source(strings.ToUpper(m[2])),
		Level:     level,
		Process: model.ProcessInfo{
			Type: model.Source(strings.ToUpper(m[4])),
			PID:  pid,
		},
		Module: model.ModuleInfo{
			Category: model.Category(strings.ToLower(m[6])),
			Filename: m[7],
		},
		Message: m[8],
	}, true
}
