package objects

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fenilsonani/mediagit/internal/oid"
)

// Commit is {tree, parents, author, committer, message}. A merge commit
// has two or more parents; the initial commit has none.
type Commit struct {
	Tree      oid.Oid
	Parents   []oid.Oid
	Author    Signature
	Committer Signature
	Message   string
}

// Serialize renders the commit's canonical byte form, matching the
// teacher's git-compatible layout (tree/parent*/author/committer, blank
// line, message).
func (c *Commit) Serialize() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "committer %s\n", c.Committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// Oid computes the commit's content Oid from its canonical serialization.
func (c *Commit) Oid() oid.Oid {
	return oid.FromBytes(c.Serialize())
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return len(c.Parents) >= 2
}

// IsRoot reports whether the commit has no parents.
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 0
}

// ParseCommit decodes a commit from its canonical byte form.
func ParseCommit(data []byte) (*Commit, error) {
	c := &Commit{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	inHeaders := true
	var messageLines []string

	for scanner.Scan() {
		line := scanner.Text()
		if inHeaders {
			if line == "" {
				inHeaders = false
				continue
			}
			key, value, ok := strings.Cut(line, " ")
			if !ok {
				return nil, fmt.Errorf("objects: invalid commit header: %q", line)
			}
			switch key {
			case "tree":
				id, err := oid.Parse(value)
				if err != nil {
					return nil, fmt.Errorf("objects: invalid commit tree oid: %w", err)
				}
				c.Tree = id
			case "parent":
				id, err := oid.Parse(value)
				if err != nil {
					return nil, fmt.Errorf("objects: invalid commit parent oid: %w", err)
				}
				c.Parents = append(c.Parents, id)
			case "author":
				sig, err := parseSignature(value)
				if err != nil {
					return nil, fmt.Errorf("objects: invalid author: %w", err)
				}
				c.Author = sig
			case "committer":
				sig, err := parseSignature(value)
				if err != nil {
					return nil, fmt.Errorf("objects: invalid committer: %w", err)
				}
				c.Committer = sig
			default:
				// unknown headers are ignored, matching the teacher's behavior
			}
		} else {
			messageLines = append(messageLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("objects: failed to parse commit: %w", err)
	}

	c.Message = strings.Join(messageLines, "\n")
	if len(messageLines) > 0 {
		c.Message += "\n"
	}
	return c, nil
}

func parseSignature(line string) (Signature, error) {
	emailStart := strings.IndexByte(line, '<')
	emailEnd := strings.IndexByte(line, '>')
	if emailStart == -1 || emailEnd == -1 || emailStart >= emailEnd {
		return Signature{}, fmt.Errorf("objects: invalid signature format: %q", line)
	}

	name := strings.TrimSpace(line[:emailStart])
	email := line[emailStart+1 : emailEnd]

	rest := strings.Fields(strings.TrimSpace(line[emailEnd+1:]))
	if len(rest) != 2 {
		return Signature{}, fmt.Errorf("objects: invalid signature timestamp: %q", line)
	}

	unixSeconds, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("objects: invalid signature timestamp: %w", err)
	}
	offset, err := strconv.Atoi(rest[1])
	if err != nil {
		return Signature{}, fmt.Errorf("objects: invalid signature timezone: %w", err)
	}
	offsetSeconds := (offset/100)*3600 + (offset%100)*60

	return Signature{
		Name:  name,
		Email: email,
		When:  time.Unix(unixSeconds, 0).In(time.FixedZone("", offsetSeconds)),
	}, nil
}
