package onboarding_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/state"
	tu "github.com/imamik/onboard/internal/testing"
)

func fwd(i int) string  { return tu.PhaseID(i) + "/forward" }
func back(i int) string { return tu.PhaseID(i) + "/rollback" }

func ids(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, tu.PhaseID(i))
	}
	return out
}

var _ = Describe("Onboarding pipeline", func() {
	var (
		reg   *registry.Registry
		store *state.Store
		inv   *tu.FakeInvoker
		ctx   context.Context
		node  = onboarding.Node{Name: "worker-4"}
	)

	newExecutor := func() *onboarding.Executor {
		return onboarding.NewExecutor(reg, store, inv, onboarding.WithNode(node), onboarding.WithRetryDelay(time.Millisecond))
	}
	newRollback := func() *onboarding.RollbackEngine {
		return onboarding.NewRollbackEngine(reg, store, inv, onboarding.WithNode(node))
	}

	BeforeEach(func() {
		reg = tu.NewRegistryBuilder().WithPhases(9).WithRollbackAll().MustBuild()
		store = state.NewStore(filepath.Join(GinkgoT().TempDir(), "state.json"), reg.IDs())
		inv = tu.NewFakeInvoker()
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
		DeferCleanup(cancel)
	})

	Describe("Scenario A: phase 3 fails on a fresh run", func() {
		var runErr error

		BeforeEach(func() {
			inv.Respond(fwd(3), tu.Failed(2, "API unreachable."))
			_, runErr = newExecutor().Run(ctx, onboarding.RunOptions{})
		})

		It("halts with a non-zero outcome", func() {
			Expect(runErr).To(MatchError(onboarding.ErrHalted))
		})

		It("persists the failure at phase 3 and leaves later phases untouched", func() {
			st, err := store.Load()
			Expect(err).NotTo(HaveOccurred())

			Expect(st.Status(tu.PhaseID(1))).To(Equal(state.StatusCompleted))
			Expect(st.Status(tu.PhaseID(2))).To(Equal(state.StatusCompleted))
			Expect(st.Status(tu.PhaseID(3))).To(Equal(state.StatusFailed))
			for _, id := range ids(4, 9) {
				Expect(st.Status(id)).To(Equal(state.StatusNotStarted), id)
			}
			Expect(st.Error(tu.PhaseID(3))).To(Equal("API unreachable."))
			Expect(st.CurrentPhase).To(Equal(tu.PhaseID(3)))
			Expect(st.CompletedCount).To(Equal(2))
			Expect(st.FailedCount).To(Equal(1))
		})

		Describe("Scenario B: resume after the cause is fixed", func() {
			BeforeEach(func() {
				inv.Reset()
			})

			It("skips phases 1-2, re-runs phase 3 and completes the pipeline", func() {
				summary, err := newExecutor().Run(ctx, onboarding.RunOptions{Resume: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(summary.Completed()).To(BeTrue())

				Expect(inv.Names()).To(Equal([]string{fwd(3), fwd(4), fwd(5), fwd(6), fwd(7), fwd(8), fwd(9)}))

				st, err := store.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(st.AllCompleted()).To(BeTrue())
				Expect(st.CompletedCount).To(Equal(9))
				Expect(st.Error(tu.PhaseID(3))).To(BeEmpty())
			})
		})
	})

	Describe("rollback from phases 1-5 completed", func() {
		BeforeEach(func() {
			st := state.New(reg.IDs())
			for _, id := range ids(1, 5) {
				Expect(st.Complete(id, "")).To(Succeed())
			}
			Expect(store.Save(st)).To(Succeed())
		})

		It("Scenario C: compensates 5..1 in order and deletes the state file", func() {
			summary, err := newRollback().Run(ctx, onboarding.RollbackOptions{Yes: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.Names()).To(Equal([]string{back(5), back(4), back(3), back(2), back(1)}))
			Expect(summary.StateDeleted).To(BeTrue())

			_, err = store.Load()
			Expect(err).To(MatchError(state.ErrNoState))
		})

		It("Scenario D: records the phase 3 failure, continues, and keeps the state file", func() {
			inv.Respond(back(3), tu.Failed(1, "cannot drain node"))

			summary, err := newRollback().Run(ctx, onboarding.RollbackOptions{Yes: true})
			Expect(err).To(MatchError(onboarding.ErrRollbackIncomplete))
			Expect(inv.Names()).To(Equal([]string{back(5), back(4), back(3), back(2), back(1)}))
			Expect(summary.Failures).To(HaveLen(1))
			Expect(summary.Failures[0].Phase).To(Equal(tu.PhaseID(3)))
			Expect(summary.StateDeleted).To(BeFalse())

			_, err = store.Load()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("properties", func() {
		It("resuming after a failure at any phase k re-runs k onwards and skips everything before it", func() {
			for k := 1; k <= reg.Len(); k++ {
				store = state.NewStore(filepath.Join(GinkgoT().TempDir(), "state.json"), reg.IDs())
				inv.Reset()
				inv.Respond(fwd(k), tu.Failed(1, "boom"))
				_, err := newExecutor().Run(ctx, onboarding.RunOptions{})
				Expect(err).To(MatchError(onboarding.ErrHalted), "k=%d", k)

				inv.Reset()
				_, err = newExecutor().Run(ctx, onboarding.RunOptions{Resume: true})
				Expect(err).NotTo(HaveOccurred(), "k=%d", k)

				var want []string
				for i := k; i <= reg.Len(); i++ {
					want = append(want, fwd(i))
				}
				Expect(inv.Names()).To(Equal(want), "k=%d", k)
			}
		})

		It("rolls back only completed phases, strictly in reverse order", func() {
			r := rand.New(rand.NewSource(GinkgoRandomSeed()))
			for trial := 0; trial < 20; trial++ {
				store = state.NewStore(filepath.Join(GinkgoT().TempDir(), "state.json"), reg.IDs())
				inv.Reset()

				st := state.New(reg.IDs())
				var want []string
				for i := reg.Len(); i >= 1; i-- {
					if r.Intn(2) == 0 {
						Expect(st.Complete(tu.PhaseID(i), "")).To(Succeed())
						want = append(want, back(i))
					}
				}
				Expect(store.Save(st)).To(Succeed())

				_, err := newRollback().Run(ctx, onboarding.RollbackOptions{Yes: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(inv.Names()).To(Equal(want))
			}
		})

		It("halts on a timeout without attempting later phases", func() {
			inv.Respond(fwd(4), tu.TimedOut())
			_, err := newExecutor().Run(ctx, onboarding.RunOptions{})

			var halt *onboarding.HaltError
			Expect(err).To(BeAssignableToTypeOf(halt))
			Expect(err.(*onboarding.HaltError).Classification).To(Equal(onboarding.TimeoutFailure))
			Expect(inv.Count(fwd(5))).To(BeZero())

			st, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Status(tu.PhaseID(4))).To(Equal(state.StatusFailed))
		})

		It("never persists a dry run", func() {
			summary, err := newExecutor().Run(ctx, onboarding.RunOptions{DryRun: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Results).To(HaveEach(HaveField("Simulated", BeTrue())))

			_, err = store.Load()
			Expect(err).To(MatchError(state.ErrNoState))
		})

		It("keeps the saved counters equal to the status counts after every save", func() {
			inv.Respond(fwd(6), tu.Failed(1, "x"))
			_, _ = newExecutor().Run(ctx, onboarding.RunOptions{})

			st, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			completed, failed := 0, 0
			for _, s := range st.PhaseStatus {
				switch s {
				case state.StatusCompleted:
					completed++
				case state.StatusFailed:
					failed++
				}
			}
			Expect(st.CompletedCount).To(Equal(completed))
			Expect(st.FailedCount).To(Equal(failed))
			Expect(st.TotalPhases).To(Equal(9))
		})
	})
})
