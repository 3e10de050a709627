package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Builtin is a host function callable from interpreted code. It receives
// the VM so it can read memory and write output.
//
// args holds the caller's actual arguments; there is no declared arity,
// so a builtin must tolerate short argument lists. The returned word is
// stored in the Funcall destination slot. A returned error faults the
// call with FaultBuiltin unless it is already a *RuntimeFault.
//
// A builtin must not call vm.Call; see ErrReentrantCall.
type Builtin func(vm *VM, args []uint64) (uint64, error)

// DefaultBuiltins returns the builtins every VM starts with: putchar
// and printf.
func DefaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"putchar": builtinPutchar,
		"printf":  builtinPrintf,
	}
}

func arg(args []uint64, i int) uint64 {
	if i < len(args) {
		return args[i]
	}
	return 0
}

// builtinPutchar writes the low byte of its argument and returns it.
func builtinPutchar(vm *VM, args []uint64) (uint64, error) {
	c := arg(args, 0)
	if _, err := vm.Stdout().Write([]byte{byte(c)}); err != nil {
		return 0, err
	}
	return c, nil
}

// builtinPrintf formats the C string at args[0] with the remaining
// arguments and returns the number of bytes written. Supported verbs are
// %d %u %x %c %s and %%. Unknown verbs are copied through.
func builtinPrintf(vm *VM, args []uint64) (uint64, error) {
	format, err := vm.CString(arg(args, 0))
	if err != nil {
		return 0, err
	}

	var sb strings.Builder
	next := 1
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch verb := format[i]; verb {
		case '%':
			sb.WriteByte('%')
		case 'd':
			sb.WriteString(strconv.FormatInt(int64(arg(args, next)), 10))
			next++
		case 'u':
			sb.WriteString(strconv.FormatUint(arg(args, next), 10))
			next++
		case 'x':
			sb.WriteString(strconv.FormatUint(arg(args, next), 16))
			next++
		case 'c':
			sb.WriteByte(byte(arg(args, next)))
			next++
		case 's':
			s, err := vm.CString(arg(args, next))
			if err != nil {
				return 0, fmt.Errorf("argument %d: %w", next, err)
			}
			sb.WriteString(s)
			next++
		default:
			sb.WriteByte('%')
			sb.WriteByte(verb)
		}
	}

	n, err := vm.Stdout().Write([]byte(sb.String()))
	return uint64(n), err
}
