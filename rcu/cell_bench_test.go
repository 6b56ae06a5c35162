package rcu

import (
	"testing"

	"rcud/infra/memory"
)

func BenchmarkCellRead(b *testing.B) {
	c := NewWithConfig(42, Config[int]{Domain: memory.NewDomain(memory.Config{})})
	defer c.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		slot := c.Domain().NewSlot()
		for pb.Next() {
			g := c.Read(slot)
			_ = g.Value()
			g.Release()
		}
	})
}

func BenchmarkCellReadWithWriter(b *testing.B) {
	c := NewWithConfig(0, Config[int]{Domain: memory.NewDomain(memory.Config{})})
	defer c.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				c.Write(i)
			}
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		slot := c.Domain().NewSlot()
		for pb.Next() {
			_ = c.Load(slot)
		}
	})
	b.StopTimer()
	close(stop)
	<-done
}

func BenchmarkCellWrite(b *testing.B) {
	c := NewWithConfig(0, Config[int]{Domain: memory.NewDomain(memory.Config{})})
	defer c.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Write(i)
	}
}

func BenchmarkBlockingCellRead(b *testing.B) {
	c := NewBlocking(42, nil)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g := c.Read()
			_ = g.Value()
			g.Release()
		}
	})
}
