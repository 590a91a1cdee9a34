package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/NaumanMunir9/cdk-patterns-eventbridge-etl/shared/application/ports"
)

// PutLogEvents accepts at most 10,000 events per call
const maxEventsPerCall = 10000

// Oldest entries are dropped past this many unflushed events
const maxPendingEvents = 5 * maxEventsPerCall

type cloudWatchLogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	ErrorLevel
)

// Logger implements ports.Logger using AWS CloudWatch Logs.
// Entries are buffered in memory and shipped by Flush; the log group
// and stream are created on the first flush, never at construction.
type Logger struct {
	sink       *logSink
	baseFields map[string]interface{}
	level      LogLevel
}

type logSink struct {
	client    cloudWatchLogsAPI
	logGroup  string
	logStream string

	mu      sync.Mutex
	ready   bool
	pending []types.InputLogEvent
}

// LoggerOptions identifies the destination stream
type LoggerOptions struct {
	LogGroup  string
	LogStream string
	Level     string
}

// NewLogger creates a CloudWatch logger from a resolved AWS config
func NewLogger(awsCfg aws.Config, opts LoggerOptions) *Logger {
	return newLogger(cloudwatchlogs.NewFromConfig(awsCfg), opts)
}

func newLogger(client cloudWatchLogsAPI, opts LoggerOptions) *Logger {
	return &Logger{
		sink: &logSink{
			client:    client,
			logGroup:  opts.LogGroup,
			logStream: opts.LogStream,
		},
		baseFields: make(map[string]interface{}),
		level:      parseLogLevel(opts.Level),
	}
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interface{}) {
	if l.level > InfoLevel {
		return
	}
	l.log("INFO", msg, fieldsToMap(fields...))
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log("ERROR", msg, fieldsToMap(fields...))
}

// Debug logs debug messages
func (l *Logger) Debug(msg string, fields ...interface{}) {
	if l.level > DebugLevel {
		return
	}
	l.log("DEBUG", msg, fieldsToMap(fields...))
}

// WithFields returns a new logger with additional default fields
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	newFields := make(map[string]interface{}, len(l.baseFields)+len(fields))
	for k, v := range l.baseFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		sink:       l.sink,
		baseFields: newFields,
		level:      l.level,
	}
}

func (l *Logger) log(level, msg string, fields map[string]interface{}) {
	entry := l.buildLogEntry(level, msg, fields)

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"message":%q,"error":"failed to marshal log"}`, level, msg))
	}

	l.sink.mu.Lock()
	if len(l.sink.pending) >= maxPendingEvents {
		l.sink.pending = l.sink.pending[1:]
	}
	l.sink.pending = append(l.sink.pending, types.InputLogEvent{
		Message:   aws.String(string(data)),
		Timestamp: aws.Int64(time.Now().UnixMilli()),
	})
	l.sink.mu.Unlock()
}

// buildLogEntry constructs the log entry with all fields
func (l *Logger) buildLogEntry(level, msg string, fields map[string]interface{}) map[string]interface{} {
	entry := make(map[string]interface{}, len(l.baseFields)+len(fields)+3)

	for k, v := range l.baseFields {
		entry[k] = v
	}

	for k, v := range fields {
		if err, ok := v.(error); ok && err != nil {
			entry[k] = err.Error()
			entry[k+"_type"] = fmt.Sprintf("%T", err)
			continue
		}
		entry[k] = v
	}

	entry["level"] = level
	entry["message"] = msg
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)

	return entry
}

// Flush ships buffered entries to CloudWatch Logs
func (l *Logger) Flush(ctx context.Context) error {
	s := l.sink

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	if !s.ready {
		if err := s.ensureLogGroup(ctx); err != nil {
			return err
		}
		if err := s.ensureLogStream(ctx); err != nil {
			return err
		}
		s.ready = true
	}

	// Events in a batch must be in chronological order
	sort.SliceStable(s.pending, func(i, j int) bool {
		return *s.pending[i].Timestamp < *s.pending[j].Timestamp
	})

	for start := 0; start < len(s.pending); start += maxEventsPerCall {
		end := start + maxEventsPerCall
		if end > len(s.pending) {
			end = len(s.pending)
		}

		_, err := s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(s.logGroup),
			LogStreamName: aws.String(s.logStream),
			LogEvents:     s.pending[start:end],
		})
		if err != nil {
			s.pending = s.pending[start:]
			return fmt.Errorf("failed to put log events: %w", err)
		}
	}

	s.pending = nil
	return nil
}

// ensureLogGroup creates the log group if it doesn't exist
func (s *logSink) ensureLogGroup(ctx context.Context) error {
	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(s.logGroup),
	})
	if err != nil {
		var alreadyExists *types.ResourceAlreadyExistsException
		if errors.As(err, &alreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create log group: %w", err)
	}
	return nil
}

// ensureLogStream creates the log stream if it doesn't exist
func (s *logSink) ensureLogStream(ctx context.Context) error {
	_, err := s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.logGroup),
		LogStreamName: aws.String(s.logStream),
	})
	if err != nil {
		var alreadyExists *types.ResourceAlreadyExistsException
		if errors.As(err, &alreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create log stream: %w", err)
	}
	return nil
}

func parseLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DebugLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// fieldsToMap converts variadic key-value pairs to a map
func fieldsToMap(fields ...interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	// Handle odd number of fields
	if len(fields)%2 != 0 {
		fields = append(fields, "")
	}

	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", fields[i])
		}
		result[key] = fields[i+1]
	}

	return result
}
