package shardsplit

import "context"

// balance makes one pass over splits in range order. Runs of neighbors join
// while the joined pair stays at or under threshold, and any split past
// resplitFactor times the target subdivides in place, its children balanced
// recursively.
func (p *Splitter) balance(ctx context.Context, gw Gateway, splits []Split, docsPerSplit, threshold int64) ([]Split, error) {
	out := make([]Split, 0, len(splits))

	i := 0
	for i < len(splits) {
		cur := splits[i]

		j := i + 1
		for j < len(splits) && cur.Hits()+splits[j].Hits() <= threshold {
			cur = p.join(cur, splits[j])
			j++
		}
		i = j

		if float64(cur.Hits()) > float64(docsPerSplit)*p.cfg.ResplitFactor {
			if rs, ok := cur.(RangeSplit); ok {
				children, err := rs.ReSplit(ctx, gw, docsPerSplit)
				if err != nil {
					return nil, err
				}
				if len(children) > 1 {
					children, err = p.balance(ctx, gw, children, docsPerSplit, threshold)
					if err != nil {
						return nil, err
					}
				}
				out = append(out, children...)
				continue
			}
		}

		out = append(out, cur)
	}

	return out, nil
}

// join merges two splits, preserving range semantics when the pair is
// contiguous and falling back to a disjunction otherwise.
func (p *Splitter) join(lhs, rhs Split) Split {
	if rs, ok := lhs.(RangeSplit); ok {
		if joined, ok := rs.JoinAdjacent(rhs); ok {
			return joined
		}
	}
	return joinFilters(lhs, rhs)
}

// joinNonAdjacentSmallSplits ORs together splits still under half the join
// threshold after balancing, regardless of adjacency. Each survivor keeps
// absorbing small partners until it is no longer small, so one sweep reaches
// its fixed point and running it again changes nothing.
func (p *Splitter) joinNonAdjacentSmallSplits(splits []Split, threshold int64) []Split {
	half := round(float64(threshold) / p.cfg.ResplitFactor)

	for a := 0; a < len(splits); a++ {
		if splits[a].Hits() >= half {
			continue
		}
		for b := a + 1; b < len(splits); b++ {
			if splits[b].Hits() >= half {
				continue
			}
			splits[a] = p.join(splits[a], splits[b])
			splits = append(splits[:b], splits[b+1:]...)
			b--
			if splits[a].Hits() >= half {
				break
			}
		}
	}

	return splits
}
