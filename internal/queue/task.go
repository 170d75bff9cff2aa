package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeProcessForm is the asynq task type of a form processing job.
const TypeProcessForm = "formscan:process"

// JobPayload is the task payload. Exactly one of Path and FileBuffer is set.
type JobPayload struct {
	JobID      string `json:"jobId"`
	Path       string `json:"path,omitempty"`
	Filename   string `json:"filename,omitempty"`
	FileBuffer []byte `json:"fileBuffer,omitempty"`
	Form       string `json:"form"`
	Committee  bool   `json:"committee,omitempty"`
}

// UnmarshalJSON implements custom JSON unmarshaling for JobPayload to handle Buffer serialization
// Supports both base64 string format and Node.js Buffer object format
func (p *JobPayload) UnmarshalJSON(data []byte) error {
	// Create alias type to avoid recursion
	type Alias JobPayload
	aux := &struct {
		FileBuffer interface{} `json:"fileBuffer,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(p),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("failed to unmarshal JobPayload: %w", err)
	}

	if aux.FileBuffer == nil {
		return nil
	}
	switch v := aux.FileBuffer.(type) {
	case string:
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return fmt.Errorf("failed to decode base64 fileBuffer: %w", err)
		}
		p.FileBuffer = decoded

	case map[string]interface{}:
		// {"type":"Buffer","data":[...]}
		if bufferType, ok := v["type"].(string); !ok || bufferType != "Buffer" {
			return fmt.Errorf("invalid Buffer object format (missing or incorrect 'type' field)")
		}
		dataArray, ok := v["data"].([]interface{})
		if !ok {
			return fmt.Errorf("Buffer object missing 'data' array")
		}
		p.FileBuffer = make([]byte, len(dataArray))
		for i, val := range dataArray {
			byteVal, ok := val.(float64)
			if !ok {
				return fmt.Errorf("invalid byte value in Buffer data array at index %d", i)
			}
			p.FileBuffer[i] = byte(byteVal)
		}

	default:
		return fmt.Errorf("fileBuffer must be either base64 string or Buffer object, got %T", v)
	}
	return nil
}

// Validate checks that the payload names exactly one document source.
func (p *JobPayload) Validate() error {
	switch {
	case p.Path == "" && len(p.FileBuffer) == 0:
		return fmt.Errorf("job %s has neither path nor fileBuffer", p.JobID)
	case p.Path != "" && len(p.FileBuffer) > 0:
		return fmt.Errorf("job %s has both path and fileBuffer", p.JobID)
	}
	return nil
}

// NewProcessTask builds a task that is never retried: extraction is deterministic.
func NewProcessTask(p *JobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}
	return asynq.NewTask(TypeProcessForm, data, asynq.MaxRetry(0)), nil
}
