package logging

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the shared application logger. Until Init runs it writes to
// stderr with the logrus defaults.
var Logger = logrus.New()

var once sync.Once

// Formatter renders one event per line: timestamp, level, message, fields.
type Formatter struct {
	SystemName string
}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	b.WriteString(fmt.Sprintf("time=%s ", entry.Time.Format("2006-01-02T15:04:05Z07:00")))
	b.WriteString(fmt.Sprintf("source=%s ", f.SystemName))
	b.WriteString(fmt.Sprintf("level=%s ", strings.ToUpper(entry.Level.String())))
	b.WriteString(fmt.Sprintf("msg=%q", entry.Message))

	for key, value := range entry.Data {
		b.WriteString(fmt.Sprintf(" %s=%v", key, value))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Init routes the shared logger to a size-rotated file. Safe to call more
// than once; only the first call takes effect.
func Init(logFile string) {
	once.Do(func() {
		Logger.SetOutput(&lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
		Logger.SetFormatter(&Formatter{SystemName: "todoflow"})
		Logger.SetLevel(logrus.InfoLevel)
	})
}
