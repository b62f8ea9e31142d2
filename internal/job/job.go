package job

import (
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v3"
)

type ErrInvalidJob struct {
	msg string
}

func (e *ErrInvalidJob) Error() string {
	return e.msg
}

// Job describes one archive request: what to package and the
// descriptive tags to record with it. Jobs are plain yaml files so
// they can be kept alongside the material they describe.
type Job struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	Organization string `yaml:"organization"`
	ContactName  string `yaml:"contact_name"`
	ContactEmail string `yaml:"contact_email"`

	Sources []string `yaml:"sources"`
}

// Load reads and validates a job file.
func Load(path string) (*Job, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	return FromReader(in)
}

func FromReader(source io.Reader) (*Job, error) {
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, err
	}

	var job Job
	err = yaml.Unmarshal(data, &job)
	if err != nil {
		return nil, err
	}

	if job.Name == "" {
		return nil, &ErrInvalidJob{msg: "job has no name"}
	}
	if len(job.Sources) == 0 {
		return nil, &ErrInvalidJob{msg: fmt.Sprintf("job %s has no sources", job.Name)}
	}

	return &job, nil
}
