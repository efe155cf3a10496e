package pool

import (
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// WriteDetailedMap writes a JSON description of the pool to out: totals,
// counters, the free list and one object per block. With chunks set every
// block also lists its chunks in physical order.
func (p *Pool) WriteDetailedMap(out io.Writer, chunks bool) error {
	if p.closed {
		return ErrClosed
	}
	perBlock := make(map[uint32][]ChunkInfo)
	var order []uint32
	if err := p.Walk(func(c ChunkInfo) error {
		if c.Offset == 0 {
			order = append(order, c.Block)
		}
		perBlock[c.Block] = append(perBlock[c.Block], c)
		return nil
	}); err != nil {
		return err
	}

	writer := jwriter.NewWriter()
	obj := writer.Object()

	usage, err := p.Usage()
	if err != nil {
		return err
	}
	writeTotals(obj.Name("Total").Object(), usage)
	p.writeConfig(obj.Name("Config").Object())
	p.writeCounters(obj.Name("Stats").Object())

	fl := obj.Name("FreeList").Object()
	fl.Name("Length").Int(p.freeCount)
	fl.Name("Head").String(p.head.String())
	fl.End()

	blocks := obj.Name("Blocks").Object()
	for _, id := range order {
		writeBlock(blocks.Name(strconv.FormatUint(uint64(id), 10)).Object(), perBlock[id], chunks)
	}
	blocks.End()
	obj.End()

	if err := writer.Error(); err != nil {
		return errors.Wrap(err, "pool: encode detailed map")
	}
	_, err = out.Write(writer.Bytes())
	return err
}

func writeTotals(json jwriter.ObjectState, u Usage) {
	json.Name("Blocks").Int(u.Blocks)
	json.Name("BlockBytes").Int(u.BlockBytes)
	json.Name("Allocations").Int(u.Live.Count)
	json.Name("AllocationBytes").Int(u.Live.Bytes)
	json.Name("UnusedRanges").Int(u.Free.Count)
	json.Name("UnusedBytes").Int(u.Free.Bytes)
	json.Name("HeaderBytes").Int(u.HeaderBytes)
	if u.Live.Count > 0 {
		json.Name("AllocationSizeMin").Int(u.Live.Min)
		json.Name("AllocationSizeMax").Int(u.Live.Max)
	}
	if u.Free.Count > 0 {
		json.Name("UnusedRangeSizeMin").Int(u.Free.Min)
		json.Name("UnusedRangeSizeMax").Int(u.Free.Max)
	}
	json.End()
}

func (p *Pool) writeConfig(json jwriter.ObjectState) {
	json.Name("BlockUnit").Int(p.cfg.BlockUnit)
	json.Name("Sentinel").Int(int(p.cfg.Sentinel))
	json.Name("Backing").String(p.cfg.Backing.String())
	json.Name("Hardened").Bool(p.cfg.Hardened)
	json.Name("Release").String(p.cfg.Release.String())
	json.End()
}

func (p *Pool) writeCounters(json jwriter.ObjectState) {
	s := p.Stats()
	json.Name("AllocCalls").Int(s.AllocCalls)
	json.Name("AllocSlowPath").Int(s.AllocSlowPath)
	json.Name("FreeCalls").Int(s.FreeCalls)
	json.Name("Splits").Int(s.Splits)
	json.Name("CoalesceForward").Int(s.CoalesceForward)
	json.Name("CoalesceBackward").Int(s.CoalesceBackward)
	json.Name("HeadAdvances").Int(s.HeadAdvances)
	json.Name("Reorders").Int(s.Reorders)
	json.Name("BlocksAcquired").Int(s.BlocksAcquired)
	json.Name("BlocksReleased").Int(s.BlocksReleased)
	json.Name("LiveAllocations").Int(s.LiveAllocations)
	json.Name("LiveBytes").Int(int(s.LiveBytes))
	json.End()
}

func writeBlock(json jwriter.ObjectState, cs []ChunkInfo, chunks bool) {
	var live, free SizeSummary
	for _, c := range cs {
		if c.Free {
			free.add(c.Size)
		} else {
			live.add(c.Size)
		}
	}
	if len(cs) > 0 {
		json.Name("TotalBytes").Int(cs[0].BlockSize)
	}
	json.Name("UnusedBytes").Int(free.Bytes)
	json.Name("Allocations").Int(live.Count)
	json.Name("UnusedRanges").Int(free.Count)

	if chunks {
		arr := json.Name("Chunks").Array()
		for _, c := range cs {
			o := arr.Object()
			o.Name("Offset").Int(c.Offset)
			o.Name("Size").Int(c.Size)
			if c.Free {
				o.Name("Type").String("FREE")
			} else {
				o.Name("Type").String("USED")
			}
			o.End()
		}
		arr.End()
	}
	json.End()
}
