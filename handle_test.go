package bserve_test

import (
	"context"
	"testing"

	"github.com/advdv/bserve"
	"github.com/stretchr/testify/require"
)

func TestFlowString(t *testing.T) {
	require.Equal(t, "continue", bserve.Continue.String())
	require.Equal(t, "stop", bserve.Stop.String())
	require.Equal(t, "Flow(7)", bserve.Flow(7).String())
}

func TestNextAndFinal(t *testing.T) {
	var calls int
	f := func(context.Context, *bserve.Response, *bserve.Request) { calls++ }

	w, r := bserve.NewResponse(), &bserve.Request{Method: bserve.MethodGet}
	require.Equal(t, bserve.Continue, bserve.Next(f).ServeFlow(t.Context(), w, r))
	require.Equal(t, bserve.Stop, bserve.Final(f).ServeFlow(t.Context(), w, r))
	require.Equal(t, 2, calls)
}
