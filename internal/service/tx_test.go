package service

import "context"

type testTxRepos struct {
	places PlaceWriter
}

func (t *testTxRepos) Places() PlaceWriter {
	return t.places
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
