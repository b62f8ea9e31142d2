package bagit

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// softwareAgent is recorded in every bag-info.txt this tool writes.
const softwareAgent = "bagvault 0.1.0 <https://github.com/studio1767/bagvault>"

// Info holds the descriptive tag fields written to bag-info.txt.
// SourceOrganization, ContactName, ContactEmail and
// InternalSenderDescription are optional: when empty the tag line is
// omitted entirely rather than written with an empty value.
type Info struct {
	SourceOrganization        string
	ContactName               string
	ContactEmail              string
	ExternalDescription       string
	InternalSenderIdentifier  string
	InternalSenderDescription string
	BaggingDate               time.Time
	BagSize                   string
	PayloadOxum               string
}

// WriteInfo writes the tag file with one line per field in fixed
// order.
func (b *Bag) WriteInfo(info *Info) error {
	var sb strings.Builder

	tag := func(label, value string) {
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	tag("Bag-Software-Agent", softwareAgent)
	tag("Bagging-Date", info.BaggingDate.Format("2006-01-02"))
	tag("Payload-Oxum", info.PayloadOxum)
	tag("Bag-Size", info.BagSize)

	if info.SourceOrganization != "" {
		tag("Source-Organization", info.SourceOrganization)
	}
	if info.ContactName != "" {
		tag("Contact-Name", info.ContactName)
	}
	if info.ContactEmail != "" {
		tag("Contact-Email", info.ContactEmail)
	}

	tag("External-Description", info.ExternalDescription)
	tag("Internal-Sender-Identifier", info.InternalSenderIdentifier)

	if info.InternalSenderDescription != "" {
		tag("Internal-Sender-Description", info.InternalSenderDescription)
	}

	return os.WriteFile(b.InfoPath, []byte(sb.String()), 0644)
}

// Size totals every file under the bag root, payload and tag files
// alike.
func (b *Bag) Size() (int64, error) {
	var total int64

	err := b.walkPayload(b.Root, func(fpath string, size int64) error {
		total += size
		return nil
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a byte count with 1024-unit steps. The base unit
// keeps the exact count, larger units show one decimal place, and
// anything beyond the table clamps to the largest unit.
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d %s", n, sizeUnits[0])
	}

	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit += 1
	}

	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
