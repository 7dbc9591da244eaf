package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"taskboard/internal/engine"
	"taskboard/internal/service"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Letter    rune // 0 if no letter, otherwise one of PartitionLetters
	TaskNum   int  // 1-based task number
	HasLetter bool // true if a partition letter was provided
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// PartitionLetters maps reference letters to board partitions.
var PartitionLetters = map[rune]service.Status{
	't': service.StatusTodo,
	'p': service.StatusInProgress,
	'd': service.StatusDone,
}

// LetterFor returns the reference letter of status s.
func LetterFor(s service.Status) rune {
	for letter, status := range PartitionLetters {
		if status == s {
			return letter
		}
	}
	return 0
}

// ParseTaskRef parses a task reference from args and reports how many
// args it consumed.
//
// Parsing rules:
//  1. all digits (3): the 3rd task on the whole board
//  2. <letter><digits> (t2, p1, d4): the Nth task of that partition
//  3. <letter> <digits> (t 2): same as 2, consuming two args
//  4. a lone letter with no number: task reference required
//  5. anything else: invalid task reference
func ParseTaskRef(args []string) (TaskRef, int, error) {
	if len(args) == 0 {
		return TaskRef{}, 0, ErrTaskRefRequired
	}

	firstArg := args[0]

	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s", firstArg)
		}
		return TaskRef{TaskNum: num}, 1, nil
	}

	if len(firstArg) > 0 && isPartitionLetter(rune(firstArg[0])) {
		letter := rune(firstArg[0])

		if len(firstArg) > 1 && isAllDigits(firstArg[1:]) {
			num, err := strconv.Atoi(firstArg[1:])
			if err != nil {
				return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s", firstArg)
			}
			return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, 1, nil
		}

		if len(firstArg) == 1 {
			if len(args) < 2 {
				return TaskRef{}, 0, ErrTaskRefRequired
			}
			if isAllDigits(args[1]) {
				num, err := strconv.Atoi(args[1])
				if err != nil {
					return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s", args[1])
				}
				return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, 2, nil
			}
			return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s", firstArg)
		}
	}

	return TaskRef{}, 0, fmt.Errorf("invalid task reference: %s", firstArg)
}

func (r TaskRef) String() string {
	if r.HasLetter {
		return fmt.Sprintf("%c%d", r.Letter, r.TaskNum)
	}
	return strconv.Itoa(r.TaskNum)
}

// Resolve finds the referenced task in v.
func (r TaskRef) Resolve(v engine.View) (service.Task, error) {
	tasks := BoardOrder(v)
	if r.HasLetter {
		tasks = v.Partition(PartitionLetters[r.Letter])
	}
	if r.TaskNum < 1 || r.TaskNum > len(tasks) {
		return service.Task{}, fmt.Errorf("task number out of range: %s", r)
	}
	return tasks[r.TaskNum-1], nil
}

// BoardOrder lists v's tasks in display order: todo, in progress, done.
func BoardOrder(v engine.View) []service.Task {
	out := make([]service.Task, 0, len(v.Tasks))
	for _, s := range service.Statuses {
		out = append(out, v.Partition(s)...)
	}
	return out
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isPartitionLetter(r rune) bool {
	_, ok := PartitionLetters[r]
	return ok
}
