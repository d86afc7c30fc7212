package solr

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const collectionsPath = "/admin/collections"

const stateActive = "active"

// Shard is one shard of a collection with its replicas.
type Shard struct {
	Name     string
	State    string
	Replicas []Replica
}

// Replica is one core hosting a shard.
type Replica struct {
	Name   string
	Core   string
	URL    string
	State  string
	Leader bool
}

// Active reports whether the shard is active and has at least one active
// replica to query.
func (s Shard) Active() bool {
	return s.State == stateActive && s.ActiveReplicaURL() != ""
}

// ActiveReplicaURL returns the URL of an active replica, preferring the
// leader, or "" when none is available.
func (s Shard) ActiveReplicaURL() string {
	found := ""
	for _, r := range s.Replicas {
		if r.State != stateActive {
			continue
		}
		if r.Leader {
			return r.URL
		}
		if found == "" {
			found = r.URL
		}
	}
	return found
}

type clusterStatusResponse struct {
	Cluster struct {
		Collections map[string]struct {
			Shards map[string]struct {
				State    string `json:"state"`
				Replicas map[string]struct {
					Core    string `json:"core"`
					BaseURL string `json:"base_url"`
					State   string `json:"state"`
					Leader  string `json:"leader"`
				} `json:"replicas"`
			} `json:"shards"`
		} `json:"collections"`
	} `json:"cluster"`
}

// ClusterShards returns the shards of a collection ordered by name. It waits,
// within the configured backoff, for the collection to report every shard
// active with at least one active replica. This wait is the only retry in the
// client: planning queries fail straight through.
func (c *Client) ClusterShards(ctx context.Context, collection string) ([]Shard, error) {
	b := backoff.New(ctx, c.cfg.Backoff)

	var lastErr error
	for b.Ongoing() {
		shards, err := c.clusterShardsOnce(ctx, collection)
		if err == nil {
			inactive := inactiveShards(shards)
			if len(inactive) == 0 {
				return shards, nil
			}
			err = fmt.Errorf("waiting for shards to become active: %v", inactive)
		}
		lastErr = err
		level.Debug(c.logger).Log("msg", "retrying cluster status", "collection", collection, "retries", b.NumRetries(), "err", err)
		b.Wait()
	}

	if lastErr != nil {
		return nil, errors.Wrapf(lastErr, "cluster status for collection %s", collection)
	}
	return nil, b.Err()
}

func (c *Client) clusterShardsOnce(ctx context.Context, collection string) ([]Shard, error) {
	params := url.Values{}
	params.Set("action", "CLUSTERSTATUS")
	params.Set("collection", collection)
	params.Set("wt", "json")

	body, err := c.doRequest(ctx, c.cfg.Endpoint+collectionsPath+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	resp := &clusterStatusResponse{}
	if err := jsoniter.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("error decoding cluster status: %w", err)
	}

	coll, ok := resp.Cluster.Collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found in cluster status", collection)
	}

	shards := make([]Shard, 0, len(coll.Shards))
	for name, sh := range coll.Shards {
		shard := Shard{
			Name:  name,
			State: sh.State,
		}
		for rName, r := range sh.Replicas {
			shard.Replicas = append(shard.Replicas, Replica{
				Name:   rName,
				Core:   r.Core,
				URL:    r.BaseURL + "/" + r.Core,
				State:  r.State,
				Leader: r.Leader == "true",
			})
		}
		sort.Slice(shard.Replicas, func(i, j int) bool { return shard.Replicas[i].Name < shard.Replicas[j].Name })
		shards = append(shards, shard)
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].Name < shards[j].Name })

	return shards, nil
}

func inactiveShards(shards []Shard) []string {
	var inactive []string
	for _, s := range shards {
		if !s.Active() {
			inactive = append(inactive, s.Name)
		}
	}
	return inactive
}
