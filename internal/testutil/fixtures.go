package testutil

import "github.com/roach88/bir/internal/ir"

// AnswerProgram returns a program whose main stores 42 in its only slot
// and returns it.
func AnswerProgram() *ir.Program {
	return &ir.Program{
		Funcs: []ir.Func{{
			Name:     "main",
			File:     "answer.b",
			AutoVars: 1,
			Body: []ir.Op{
				ir.AutoAssign(0, ir.Literal(42)).At(1, 1),
				ir.Return(ir.AutoVar(0)).At(2, 1),
			},
		}},
	}
}

// SumProgram returns a program with sum(n) = 1 + 2 + ... + n. Labels are
// declared in order L0, L1, L2 and the body jumps forward to L1 before L0
// is reached, so jumps reference labels out of declaration order.
func SumProgram() *ir.Program {
	return &ir.Program{
		Funcs: []ir.Func{{
			Name:     "sum",
			File:     "sum.b",
			Params:   1,
			AutoVars: 3,
			Body: []ir.Op{
				ir.AutoAssign(1, ir.Literal(0)).At(2, 5),
				ir.Jump(1).At(3, 5),
				ir.Label(0).At(4, 1),
				ir.BinaryOp(1, ir.BinopPlus, ir.AutoVar(1), ir.AutoVar(0)).At(5, 5),
				ir.BinaryOp(0, ir.BinopMinus, ir.AutoVar(0), ir.Literal(1)).At(6, 5),
				ir.Label(1).At(7, 1),
				ir.BinaryOp(2, ir.BinopGreater, ir.AutoVar(0), ir.Literal(0)).At(7, 12),
				ir.JumpIfNot(2, ir.AutoVar(2)).At(7, 5),
				ir.Jump(0).At(8, 5),
				ir.Label(2).At(9, 1),
				ir.Return(ir.AutoVar(1)).At(9, 5),
			},
		}},
	}
}

// KitchenSinkProgram returns a program that uses every op kind, operand
// kind and immediate kind at least once. It validates and round-trips
// but main is not meant to be executed: it contains Asm and Bogus ops.
func KitchenSinkProgram() *ir.Program {
	return &ir.Program{
		Externs: []string{"putchar"},
		Data:    []byte("hi\n\x00"),
		Globals: []ir.Global{
			{Name: "counter", Values: []ir.ImmediateValue{ir.LiteralValue(5)}},
			{
				Name:    "table",
				Values:  []ir.ImmediateValue{ir.NameValue("main"), ir.DataOffsetValue(0), ir.LiteralValue(3)},
				IsVec:   true,
				MinSize: 4,
			},
		},
		Funcs: []ir.Func{
			{
				Name:     "helper",
				File:     "kitchen.b",
				Params:   2,
				AutoVars: 2,
				Body: []ir.Op{
					ir.BinaryOp(0, ir.BinopMult, ir.AutoVar(0), ir.AutoVar(1)).At(1, 10),
					ir.Return(ir.AutoVar(0)).At(1, 3),
				},
			},
			{
				Name:     "main",
				File:     "kitchen.b",
				AutoVars: 4,
				Body: []ir.Op{
					ir.AutoAssign(0, ir.Literal(7)).At(3, 5),
					ir.AutoAssign(1, ir.RefAutoVar(0)).At(4, 5),
					ir.Store(1, ir.Literal(9)).At(5, 5),
					ir.Negate(2, ir.Deref(1)).At(6, 5),
					ir.UnaryNot(3, ir.AutoVar(2)).At(7, 5),
					ir.ExternalAssign("counter", ir.Literal(1)).At(8, 5),
					ir.Index(2, ir.RefExternal("table"), ir.Literal(1)).At(9, 5),
					ir.Funcall(3, ir.External("helper"), ir.AutoVar(0), ir.Literal(6)).At(10, 5),
					ir.Funcall(0, ir.External("putchar"), ir.Literal(104)).At(11, 5),
					ir.Label(0).At(12, 1),
					ir.BinaryOp(0, ir.BinopBitShr, ir.DataOffset(2), ir.Literal(1)).At(13, 5),
					ir.JumpIfNot(0, ir.External("counter")).At(14, 5),
					ir.Asm("nop", "ret").At(15, 5),
					ir.Op{Kind: ir.OpBogus}.At(16, 5),
					ir.Jump(0).At(17, 5),
					ir.Return(ir.Arg{}).At(18, 5),
				},
			},
		},
	}
}
