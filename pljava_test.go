package pljava

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tada/pljava-sub010/types"
)

func TestReentrantInvocations(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	// outer calls mid through SQL, mid calls inner the same way: three
	// frames deep, each nesting recorded, all unwound in order.
	var depths []int
	record := func() {
		inv := b.CurrentInvocation()
		require.NotNil(t, inv)
		depths = append(depths, inv.Nest)
	}

	innerSpec := &FuncSpec{Oid: 52003, Name: "inner", AS: "com.example.Nest.inner", ReturnOid: types.Int4OID}
	midSpec := &FuncSpec{Oid: 52002, Name: "mid", AS: "com.example.Nest.mid", ReturnOid: types.Int4OID}
	outerSpec := &FuncSpec{Oid: 52001, Name: "outer", AS: "com.example.Nest.outer", ReturnOid: types.Int4OID}

	rt.define("com.example.Nest", "inner", "()I", func(context.Context, []interface{}) (interface{}, error) {
		record()
		return int32(3), nil
	})
	rt.define("com.example.Nest", "mid", "()I", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		record()
		d, err := b.CallFunction(ctx, innerSpec, nil)
		if err != nil {
			return nil, err
		}
		v, err := b.Registry().TypeForOid(types.Int4OID, nil)
		if err != nil {
			return nil, err
		}
		n, err := v.CoerceDatum(d)
		if err != nil {
			return nil, err
		}
		return n.(int32) * 10, nil
	})
	rt.define("com.example.Nest", "outer", "()I", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		record()
		d, err := b.CallFunction(ctx, midSpec, nil)
		if err != nil {
			return nil, err
		}
		assert.Equal(t, StateInJava, b.State())
		return int32(100 + int(d[3])), nil
	})

	d, err := b.CallFunction(context.Background(), outerSpec, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Datum{0, 0, 0, 130}, d)
	assert.Equal(t, []int{1, 2, 3}, depths)
	assert.Equal(t, StateIdle, b.State())
	assert.Equal(t, 0, b.invocations.Depth())
}

func TestCloseRefusedDuringInvocation(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)
	rt.define("com.example.Guard", "close", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		return nil, b.Close(ctx)
	})

	spec := &FuncSpec{Oid: 52010, Name: "close_me", AS: "com.example.Guard.close", ReturnOid: types.VoidOID}
	_, err := b.CallFunction(context.Background(), spec, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "during an invocation")
	assert.Equal(t, 0, rt.shutdowns)

	require.NoError(t, b.Close(context.Background()))
	assert.Equal(t, 1, rt.shutdowns)
	assert.False(t, b.Started())
}

func TestCloseWithoutBootIsNoop(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)
	require.NoError(t, b.Close(context.Background()))
	assert.Equal(t, 0, rt.shutdowns)
}

type spiFunc func(ctx context.Context, sql string, args []types.Datum, readonly bool, limit int64) (*SPIResult, error)

func (f spiFunc) Execute(ctx context.Context, sql string, args []types.Datum, readonly bool, limit int64) (*SPIResult, error) {
	return f(ctx, sql, args, readonly, limit)
}

func TestExecuteSQLOutsideInvocation(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)
	_, err := b.ExecuteSQL(context.Background(), "SELECT 1", nil, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside an invocation")
}

func TestExecuteSQLReadonlyFollowsFunction(t *testing.T) {
	var sawReadonly []bool
	spi := spiFunc(func(_ context.Context, _ string, _ []types.Datum, readonly bool, _ int64) (*SPIResult, error) {
		sawReadonly = append(sawReadonly, readonly)
		return &SPIResult{Processed: 1}, nil
	})

	rt := newFakeRuntime()
	b := newTestBackend(t, &Config{SPI: spi}, rt)
	rt.define("com.example.Q", "stable", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		_, err := b.ExecuteSQL(ctx, "SELECT 1", nil, 0)
		return nil, err
	})
	rt.define("com.example.Q", "volatile", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		_, err := b.ExecuteSQL(ctx, "UPDATE t SET x = 1", nil, 0)
		return nil, err
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 52020, Name: "q_stable", AS: "com.example.Q.stable",
		ReturnOid: types.VoidOID, Volatility: VolatilityStable,
	}, nil)
	require.NoError(t, err)

	_, err = b.CallFunction(context.Background(), &FuncSpec{
		Oid: 52021, Name: "q_volatile", AS: "com.example.Q.volatile",
		ReturnOid: types.VoidOID, Volatility: VolatilityVolatile,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, sawReadonly)
}

func TestStateTracksServerReentry(t *testing.T) {
	var b *Backend
	var states []ExecState

	innerSpec := &FuncSpec{Oid: 52051, Name: "inner", AS: "com.example.Nest.inner", ReturnOid: types.VoidOID}

	spi := spiFunc(func(ctx context.Context, sql string, _ []types.Datum, _ bool, _ int64) (*SPIResult, error) {
		states = append(states, b.State())
		if sql == "SELECT inner()" {
			if _, err := b.CallFunction(ctx, innerSpec, nil); err != nil {
				return nil, err
			}
			states = append(states, b.State())
		}
		return &SPIResult{Processed: 1}, nil
	})

	rt := newFakeRuntime()
	b = newTestBackend(t, &Config{SPI: spi}, rt)
	rt.define("com.example.Nest", "inner", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		states = append(states, b.State())
		_, err := b.ExecuteSQL(ctx, "SELECT 1", nil, 0)
		return nil, err
	})
	rt.define("com.example.Nest", "outer", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		_, err := b.ExecuteSQL(ctx, "SELECT inner()", nil, 0)
		return nil, err
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 52050, Name: "outer", AS: "com.example.Nest.outer", ReturnOid: types.VoidOID,
	}, nil)
	require.NoError(t, err)

	// Executor sees in-server, the nested function sees in-java, its own SPI
	// work sees in-server again, and the pop restores the executor's view.
	assert.Equal(t, []ExecState{StateInServer, StateInJava, StateInServer, StateInServer}, states)
	assert.Equal(t, StateIdle, b.State())
}

func TestEntryFenceRejectsSPIFromServerSide(t *testing.T) {
	var b *Backend
	spi := spiFunc(func(ctx context.Context, _ string, _ []types.Datum, _ bool, _ int64) (*SPIResult, error) {
		// The executor itself is not Java; going back through the bridge
		// here must be fenced off.
		_, err := b.ExecuteSQL(ctx, "SELECT 1", nil, 0)
		require.Error(t, err)
		var data *ErrorData
		require.ErrorAs(t, err, &data)
		assert.Equal(t, CodeInternalError, data.Code)
		assert.Contains(t, data.Message, "awaiting a return from Java")
		return &SPIResult{Processed: 1}, nil
	})

	rt := newFakeRuntime()
	b = newTestBackend(t, &Config{SPI: spi}, rt)
	rt.define("com.example.Q", "run", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		_, err := b.ExecuteSQL(ctx, "SELECT 1", nil, 0)
		return nil, err
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 52060, Name: "run", AS: "com.example.Q.run", ReturnOid: types.VoidOID,
	}, nil)
	require.NoError(t, err)
}

func TestServerErrorPoisonsInvocation(t *testing.T) {
	serverData := &ErrorData{Severity: "ERROR", Code: "23505", Message: "duplicate key"}
	calls := 0
	spi := spiFunc(func(context.Context, string, []types.Datum, bool, int64) (*SPIResult, error) {
		calls++
		return nil, serverData
	})

	rt := newFakeRuntime()
	b := newTestBackend(t, &Config{SPI: spi}, rt)
	rt.define("com.example.Q", "naughty", "()V", func(ctx context.Context, _ []interface{}) (interface{}, error) {
		_, err := b.ExecuteSQL(ctx, "INSERT ...", nil, 0)
		require.Error(t, err)
		var se *ServerError
		require.ErrorAs(t, err, &se)
		assert.Same(t, serverData, se.Data)

		// The frame is poisoned now: the second statement never reaches the
		// executor.
		_, err2 := b.ExecuteSQL(ctx, "SELECT 1", nil, 0)
		require.Error(t, err2)

		// Catching and swallowing is not an option; re-throw.
		return nil, &JavaError{
			ClassName: "org.postgresql.pljava.internal.ServerException",
			Message:   se.Data.Message,
			Server:    se,
		}
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 52030, Name: "naughty", AS: "com.example.Q.naughty", ReturnOid: types.VoidOID,
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Same(t, serverData, ErrorToRaise(err))
	assert.Equal(t, StateIdle, b.State())
}

func TestInvocationOnPopOrder(t *testing.T) {
	rt := newFakeRuntime()
	b := newTestBackend(t, nil, rt)

	var order []string
	rt.define("com.example.Hook", "run", "()V", func(context.Context, []interface{}) (interface{}, error) {
		inv := b.CurrentInvocation()
		inv.OnPop(func() { order = append(order, "first") })
		inv.OnPop(func() { order = append(order, "second") })
		return nil, nil
	})

	_, err := b.CallFunction(context.Background(), &FuncSpec{
		Oid: 52040, Name: "hooked", AS: "com.example.Hook.run", ReturnOid: types.VoidOID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestParseSettings(t *testing.T) {
	cfg, err := ParseSettings(map[string]string{
		"pljava.vmoptions":       `-Xmx64m -Djava.library.path='/usr/lib/jvm 11'`,
		"pljava.classpath":       "$libdir/pljava.jar:/opt/extra.jar",
		"pljava.libjvm_location": "/usr/lib/jvm/libjvm.so",
		"pljava.debug":           "on",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"-Xmx64m", "-Djava.library.path=/usr/lib/jvm 11"}, cfg.VMOptions)
	assert.Equal(t, []string{"$libdir/pljava.jar", "/opt/extra.jar"}, cfg.Classpath)
	assert.Equal(t, "/usr/lib/jvm/libjvm.so", cfg.LibJVMLocation)
	assert.True(t, cfg.DebugWait)

	_, err = ParseSettings(map[string]string{"pljava.nope": "x"})
	assert.Error(t, err)

	_, err = ParseSettings(map[string]string{"pljava.vmoptions": `-Dbroken='oops`})
	assert.Error(t, err)
}

func TestVMArguments(t *testing.T) {
	t.Setenv("CLASSPATH", "")
	cfg := &Config{
		Classpath: []string{"$libdir/pljava.jar", "/opt/extra.jar"},
		LibDir:    "/usr/lib/postgresql",
		VMOptions: []string{"-Xmx64m", "-Dpljava.home=$libdir"},
	}
	args := cfg.VMArguments()
	require.Len(t, args, 3)
	assert.Equal(t, "-Djava.class.path=/usr/lib/postgresql/pljava.jar:/opt/extra.jar", args[0])
	assert.Equal(t, "-Xmx64m", args[1])
	assert.Equal(t, "-Dpljava.home=$libdir", args[2], "$libdir only expands at the start of an entry")
}

func TestVMArgumentsMergeEnvironment(t *testing.T) {
	t.Setenv("CLASSPATH", "/home/u/app.jar")
	t.Setenv("LD_LIBRARY_PATH", "/usr/local/lib")
	cfg := &Config{
		Classpath:   []string{"$libdir/pljava.jar"},
		LibraryPath: []string{"$libdir"},
		LibDir:      "/usr/lib/postgresql",
	}
	args := cfg.VMArguments()
	require.Len(t, args, 2)
	assert.Equal(t, "-Djava.class.path=/usr/lib/postgresql/pljava.jar:/home/u/app.jar", args[0])
	assert.Equal(t, "-Djava.library.path=/usr/lib/postgresql:/usr/local/lib", args[1])
}

func TestCheckJavaVersion(t *testing.T) {
	cfg := &Config{MinJavaVersion: "11"}
	assert.NoError(t, cfg.CheckJavaVersion("17.0.2+8"))
	assert.NoError(t, cfg.CheckJavaVersion("11.0.14"))
	assert.Error(t, cfg.CheckJavaVersion("1.8.0_312"))
	assert.Error(t, cfg.CheckJavaVersion("not-a-version"))
	assert.NoError(t, (&Config{}).CheckJavaVersion("anything"))
}

func TestLogLevelFromString(t *testing.T) {
	lvl, err := LogLevelFromString("debug")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)
	assert.Equal(t, "debug", lvl.String())

	_, err = LogLevelFromString("loud")
	assert.Error(t, err)
}

func TestBackendLogsThroughLogger(t *testing.T) {
	var msgs []string
	logger := LoggerFunc(func(_ context.Context, _ LogLevel, msg string, _ map[string]interface{}) {
		msgs = append(msgs, msg)
	})

	rt := newFakeRuntime()
	b := newTestBackend(t, &Config{Logger: logger, LogLevel: LogLevelInfo}, rt)
	rt.define("com.example.Math", "add", "(II)I", func(context.Context, []interface{}) (interface{}, error) {
		return int32(0), nil
	})

	_, err := b.CallFunction(context.Background(), addSpec(), []types.Datum{{0, 0, 0, 0}, {0, 0, 0, 0}})
	require.NoError(t, err)
	assert.Contains(t, msgs, "starting JVM")
}
