package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/GeorgeMLP/malloclab/heap"
)

// A trace file is a sequence of operations, one per line, each naming a
// slot that later lines can refer back to:
//
//	a SLOT SIZE        Allocate(SIZE), remember the result as SLOT
//	f SLOT             Release the pointer remembered as SLOT
//	r SLOT SIZE        Resize the pointer remembered as SLOT to SIZE,
//	                   replacing SLOT with the (possibly new) pointer
//	c SLOT NMEMB SIZE  CallocAllocate(NMEMB, SIZE), remember as SLOT
//
// Blank lines and lines starting with # are ignored.

func runTrace(r io.Reader, a *heap.Allocator, checkEvery bool) error {
	slots := map[int]heap.Ptr{}
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if err := applyOp(a, slots, fields); err != nil {
			return errors.Wrapf(err, "line %d: %q", lineNo, line)
		}

		if checkEvery {
			a.CheckHeap(lineNo)
		}
		logrus.WithField("line", lineNo).Debug(line)
	}

	return scanner.Err()
}

func applyOp(a *heap.Allocator, slots map[int]heap.Ptr, fields []string) error {
	if len(fields) == 0 {
		return nil
	}

	atoi := func(s string) (int, error) { return strconv.Atoi(s) }

	switch fields[0] {
	case "a":
		if len(fields) != 3 {
			return fmt.Errorf("want 'a SLOT SIZE', got %v", fields)
		}
		slot, err := atoi(fields[1])
		if err != nil {
			return err
		}
		size, err := atoi(fields[2])
		if err != nil {
			return err
		}
		ptr, err := a.Allocate(size)
		if err != nil {
			return err
		}
		slots[slot] = ptr

	case "f":
		if len(fields) != 2 {
			return fmt.Errorf("want 'f SLOT', got %v", fields)
		}
		slot, err := atoi(fields[1])
		if err != nil {
			return err
		}
		a.Release(slots[slot])
		delete(slots, slot)

	case "r":
		if len(fields) != 3 {
			return fmt.Errorf("want 'r SLOT SIZE', got %v", fields)
		}
		slot, err := atoi(fields[1])
		if err != nil {
			return err
		}
		size, err := atoi(fields[2])
		if err != nil {
			return err
		}
		ptr, err := a.Resize(slots[slot], size)
		if err != nil {
			return err
		}
		slots[slot] = ptr

	case "c":
		if len(fields) != 4 {
			return fmt.Errorf("want 'c SLOT NMEMB SIZE', got %v", fields)
		}
		slot, err := atoi(fields[1])
		if err != nil {
			return err
		}
		nmemb, err := atoi(fields[2])
		if err != nil {
			return err
		}
		size, err := atoi(fields[3])
		if err != nil {
			return err
		}
		ptr, err := a.CallocAllocate(nmemb, size)
		if err != nil {
			return err
		}
		slots[slot] = ptr

	default:
		return fmt.Errorf("unknown op %q", fields[0])
	}

	return nil
}
