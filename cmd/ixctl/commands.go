package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"ixtree/internal/btree"
	"ixtree/internal/page"
	"ixtree/internal/rid"
)

func parseKeyKind(s string) (page.KeyKind, error) {
	switch s {
	case "int":
		return page.KeyKindInt, nil
	case "float":
		return page.KeyKindFloat, nil
	default:
		return 0, fmt.Errorf("unsupported key kind %q (want int or float)", s)
	}
}

func encodeKey(kind page.KeyKind, s string) ([]byte, error) {
	buf := make([]byte, page.KeySize)
	switch kind {
	case page.KeyKindInt:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse int key %q: %w", s, err)
		}
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	case page.KeyKindFloat:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("parse float key %q: %w", s, err)
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	default:
		return nil, fmt.Errorf("unsupported key kind %v", kind)
	}
	return buf, nil
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <table> <attribute> <int|float>",
		Short: "Create a new empty index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKeyKind(args[2])
			if err != nil {
				return err
			}
			m, logger, err := openManager()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := m.CreateIndex(args[0], args[1], kind); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created index %s.%s (%s)\n", args[0], args[1], args[2])
			return nil
		},
	}
}

func newDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <table> <attribute>",
		Short: "Destroy an existing index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, err := openManager()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := m.DestroyIndex(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "destroyed index %s.%s\n", args[0], args[1])
			return nil
		},
	}
}

func newOpenAndInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open-and-insert <table> <attribute> <key> <pageNum> <slotNum>",
		Short: "Insert one (key, rid) entry into an existing index",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, logger, err := openManager()
			if err != nil {
				return err
			}
			defer logger.Sync()

			h, err := m.OpenIndex(args[0], args[1])
			if err != nil {
				return err
			}
			defer m.CloseIndex(h)

			keyBuf, err := encodeKey(h.KeyKind(), args[2])
			if err != nil {
				return err
			}
			pageNum, err := strconv.ParseUint(args[3], 10, 32)
			if err != nil {
				return fmt.Errorf("parse pageNum %q: %w", args[3], err)
			}
			slotNum, err := strconv.ParseUint(args[4], 10, 32)
			if err != nil {
				return fmt.Errorf("parse slotNum %q: %w", args[4], err)
			}

			r := rid.RID{PageNum: uint32(pageNum), SlotNum: uint32(slotNum)}
			if err := h.InsertEntry(keyBuf, r); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %s -> (%d, %d)\n", args[2], r.PageNum, r.SlotNum)
			return nil
		},
	}
}

var compOpNames = map[string]btree.CompOp{
	"EQ": btree.EQOp, "LT": btree.LTOp, "LE": btree.LEOp,
	"GT": btree.GTOp, "GE": btree.GEOp, "NE": btree.NEOp, "NOOP": btree.NoOp,
}

func newScanCmd() *cobra.Command {
	var op string
	var value string

	cmd := &cobra.Command{
		Use:   "scan <table> <attribute>",
		Short: "Scan an index to completion, printing every matching entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			compOp, ok := compOpNames[op]
			if !ok {
				return fmt.Errorf("unsupported op %q", op)
			}

			m, logger, err := openManager()
			if err != nil {
				return err
			}
			defer logger.Sync()

			h, err := m.OpenIndex(args[0], args[1])
			if err != nil {
				return err
			}
			defer m.CloseIndex(h)

			var valueBuf []byte
			if compOp != btree.NoOp {
				valueBuf, err = encodeKey(h.KeyKind(), value)
				if err != nil {
					return err
				}
			}

			scan, err := h.OpenScan(compOp, valueBuf)
			if err != nil {
				return err
			}
			defer scan.Close()

			count := 0
			for {
				r, err := scan.GetNextEntry()
				if err != nil {
					break
				}
				fmt.Fprintf(cmd.OutOrStdout(), "(%d, %d)\n", r.PageNum, r.SlotNum)
				count++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&op, "op", "NOOP", "comparison operator: EQ, LT, LE, GT, GE, NE, NOOP")
	cmd.Flags().StringVar(&value, "value", "", "comparison value (ignored for NOOP)")
	return cmd
}
