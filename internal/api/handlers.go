package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"stakelens/internal/aggregator"
	"stakelens/internal/chain"
	"stakelens/internal/domain"
	"stakelens/internal/storage"
)

// getProject aggregates a project live. Optional ?user= adds the user's
// staking position.
func (s *Server) getProject(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}

	req := aggregator.Request{Token: token}
	if u := c.Query("user"); u != "" {
		if !common.IsHexAddress(u) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user address"})
			return
		}
		req.User = common.HexToAddress(u)
	}

	snap, err := s.aggregator.Aggregate(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// getLatestSnapshot returns the newest stored snapshot.
func (s *Server) getLatestSnapshot(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	if s.snapshots == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "snapshot storage not configured"})
		return
	}

	snap, err := s.snapshots.GetLatest(c.Request.Context(), s.key(token))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// getHistory returns stored metric points within ?from=&to= (inclusive).
func (s *Server) getHistory(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	if s.points == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "metric storage not configured"})
		return
	}

	from, err := blockQuery(c, "from", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from block"})
		return
	}
	to, err := blockQuery(c, "to", math.MaxInt64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to block"})
		return
	}
	if from > to {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not exceed to"})
		return
	}

	points, err := s.points.GetByBlockRange(c.Request.Context(), s.key(token), from, to)
	if err != nil {
		s.fail(c, err)
		return
	}
	if points == nil {
		points = []*domain.MetricPoint{}
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

// getAllocation resolves the claimant's allocation live and logs the result
// when an allocation store is configured.
func (s *Server) getAllocation(c *gin.Context) {
	token, ok := addressParam(c, "token")
	if !ok {
		return
	}
	claimant, ok := addressParam(c, "claimant")
	if !ok {
		return
	}
	if s.resolver == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "allocation table not configured"})
		return
	}

	ctx := c.Request.Context()
	addrs, err := s.aggregator.Lookup(ctx, token)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.resolver.Resolve(ctx, addrs.Treasury, token, claimant)
	if err != nil {
		s.fail(c, err)
		return
	}

	// Unstamped resolutions all share one id per table version, so
	// storing them would drop every later one as a duplicate.
	if s.allocations != nil && res.BlockNumber != 0 {
		if err := s.allocations.Insert(ctx, res); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			s.log.WithError(err).WithField("id", res.ID).Warn("store allocation resolution failed")
		}
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) key(token common.Address) domain.SnapshotKey {
	return domain.SnapshotKey{ChainID: s.aggregator.ChainID(), Token: token}
}

// fail maps err to a status code and writes it.
func (s *Server) fail(c *gin.Context, err error) {
	var batchErr *chain.BatchError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, aggregator.ErrNotRegistered), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &batchErr):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func addressParam(c *gin.Context, name string) (common.Address, bool) {
	v := c.Param(name)
	if !common.IsHexAddress(v) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " address"})
		return common.Address{}, false
	}
	return common.HexToAddress(v), true
}

func blockQuery(c *gin.Context, name string, def uint64) (uint64, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	return strconv.ParseUint(v, 10, 64)
}
