package natvis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natvis/internal/format"
	"natvis/internal/intrinsic"
)

const header = `<?xml version="1.0" encoding="utf-8"?>
<AutoVisualizer xmlns="http://schemas.microsoft.com/vstudio/debugger/natvis/2010">
`

func doc(body string) []byte {
	return []byte(header + body + "\n</AutoVisualizer>")
}

func captureLogger(lines *[]string) logr.Logger {
	return funcr.New(func(prefix, args string) {
		*lines = append(*lines, args)
	}, funcr.Options{Verbosity: 1})
}

func collect(t *testing.T, d *Document) []*TypeEntry {
	t.Helper()
	return slices.Collect(d.Types(context.Background()))
}

func byName(entries []*TypeEntry, raw string) *TypeEntry {
	for _, e := range entries {
		if e.Names[0].Raw == raw {
			return e
		}
	}
	return nil
}

func TestParseFile_Containers(t *testing.T) {
	var logs []string
	p := NewParser(captureLogger(&logs), Options{})
	d, err := p.ParseFile(context.Background(), "testdata/containers.natvis")
	require.NoError(t, err)

	entries := collect(t, d)
	require.Len(t, entries, 5)
	assert.Equal(t, 2, d.Skipped())

	var skipped int
	for _, l := range logs {
		if strings.Contains(l, "skipping type entry") {
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)

	t.Run("Vector", func(t *testing.T) {
		vec := byName(entries, "Vec<*>")
		require.NotNil(t, vec)

		var raws []string
		for _, n := range vec.Names {
			raws = append(raws, n.Raw)
		}
		assert.Equal(t, []string{"Vec<*>", "SmallVec<*,*>", "ArrayRef<*>"}, raws)
		assert.True(t, vec.Matches("Vec<int>"))
		assert.True(t, vec.Matches("SmallVec<int, 8>"))
		assert.False(t, vec.Matches("List<int>"))
		assert.Equal(t, PriorityMedium, vec.Priority)
		assert.True(t, vec.Inheritable)

		size := vec.Intrinsics.Lookup(intrinsic.MangledName{Name: "size"})
		require.Len(t, size, 1)
		assert.Equal(t, "(((int*)_last) - ((int*)_first))", size[0].Expression)

		require.Len(t, vec.Summaries, 1)
		segs := vec.Summaries[0].Value.Segments()
		require.Len(t, segs, 2)
		assert.Equal(t, "{ size=", segs[0].Literal)
		assert.Equal(t, "((((int*)_last) - ((int*)_first)))", segs[0].Expr.Text)
		assert.Equal(t, " }", segs[1].Literal)
		assert.Nil(t, segs[1].Expr)

		require.NotNil(t, vec.Expand)
		assert.True(t, vec.Expand.HideRawView)
		require.Len(t, vec.Expand.Items, 2)
		item, ok := vec.Expand.Items[0].(*Item)
		require.True(t, ok)
		assert.Equal(t, "[size]", item.Name)
		assert.Equal(t, "((((int*)_last) - ((int*)_first)))", item.Value.Text)
		arr, ok := vec.Expand.Items[1].(*ArrayItems)
		require.True(t, ok)
		assert.Equal(t, "_first", arr.ValuePointers[0].Value.Text)
		assert.Equal(t, "ArrayItems", DisplayName(arr))
	})

	t.Run("Pair", func(t *testing.T) {
		pair := byName(entries, "Pair<*,*>")
		require.NotNil(t, pair)
		assert.Equal(t, PriorityHigh, pair.Priority)
		assert.Equal(t, 5, int(pair.Priority))
		assert.False(t, pair.Inheritable)
		require.Len(t, pair.Summaries, 2)
		assert.Equal(t, "first == 0", pair.Summaries[0].Condition.Expression)

		var exprs []*format.Expression
		for e := range pair.Summaries[1].Value.Expressions() {
			exprs = append(exprs, e)
		}
		require.Len(t, exprs, 2)
		assert.Equal(t, "second", exprs[1].Text)
		assert.Equal(t, format.SpecHex, exprs[1].Specifier)
	})

	t.Run("Smart pointer", func(t *testing.T) {
		ptr := byName(entries, "Ptr<*>")
		require.NotNil(t, ptr)
		require.NotNil(t, ptr.SmartPointer)
		assert.Equal(t, UsageIndexable, ptr.SmartPointer.Usage)
		assert.True(t, ptr.SmartPointer.DefaultExpansion)
		assert.Equal(t, "_ptr", ptr.SmartPointer.Value.Text)
		require.Len(t, ptr.StringViews, 1)
		assert.Equal(t, format.SpecUTF8String, ptr.StringViews[0].Value.Specifier)
	})

	t.Run("Linked list drops incomplete tree", func(t *testing.T) {
		list := byName(entries, "List<*>")
		require.NotNil(t, list)
		require.Len(t, list.Expand.Items, 1)
		ll, ok := list.Expand.Items[0].(*LinkedListItems)
		require.True(t, ok)
		require.NotNil(t, ll.Size)
		assert.Equal(t, "_size", ll.Size.Text)
		assert.Equal(t, "_head", ll.HeadPointer.Text)
		assert.Equal(t, "_next", ll.NextPointer.Text)
		assert.Equal(t, "_value", ll.ValueNode.Text)
		assert.Equal(t, "[node]", ll.ValueNodeName)
	})

	t.Run("Custom list", func(t *testing.T) {
		ring := byName(entries, "Ring<*>")
		require.NotNil(t, ring)
		require.Len(t, ring.Expand.Items, 1)
		cl, ok := ring.Expand.Items[0].(*CustomListItems)
		require.True(t, ok)
		assert.Equal(t, uint32(100), cl.MaxItemsPerView)
		assert.Equal(t, []Variable{{Name: "i", InitialValue: "0"}}, cl.Variables)
		require.Len(t, cl.Code, 1)
		loop, ok := cl.Code[0].(*Loop)
		require.True(t, ok)
		require.Len(t, loop.Body, 4)
		assert.IsType(t, &If{}, loop.Body[0])
		assert.IsType(t, &Elseif{}, loop.Body[1])
		assert.IsType(t, &Else{}, loop.Body[2])
		assert.IsType(t, &Exec{}, loop.Body[3])

		els := loop.Body[2].(*Else)
		require.Len(t, els.Body, 1)
		li, ok := els.Body[0].(*ListItem)
		require.True(t, ok)
		assert.Equal(t, "_items[i]", li.Value.Text)
	})

	assert.Empty(t, d.UnusedIntrinsics())
}

func TestParseFile_Providers(t *testing.T) {
	var logs []string
	d, err := NewParser(captureLogger(&logs), Options{}).ParseFile(context.Background(), "testdata/providers.natvis")
	require.NoError(t, err)

	entries := collect(t, d)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, d.Skipped())
	assert.True(t, slices.ContainsFunc(logs, func(l string) bool {
		return strings.Contains(l, "Skewed") && strings.Contains(l, "Sideways")
	}))
	assert.Empty(t, d.UnusedIntrinsics())

	grid := entries[0]
	require.NotNil(t, grid.Expand)
	items := grid.Expand.Items
	require.Len(t, items, 5)

	t.Run("Expanded item", func(t *testing.T) {
		ex, ok := items[0].(*ExpandedItem)
		require.True(t, ok)
		assert.Equal(t, "_base", ex.Value.Text)
		assert.Equal(t, "_base != 0", ex.Condition.Expression)
		assert.True(t, IsConditional(ex))
	})

	t.Run("Synthetic", func(t *testing.T) {
		syn, ok := items[1].(*Synthetic)
		require.True(t, ok)
		assert.Equal(t, "[shape]", DisplayName(syn))
		require.NotNil(t, syn.Value)
		assert.Equal(t, "(_rows)", syn.Value.Text)

		require.Len(t, syn.Summaries, 1)
		assert.Equal(t, "{(_rows)} rows", syn.Summaries[0].Value.String())
		require.Len(t, syn.StringViews, 1)
		assert.Equal(t, "_name", syn.StringViews[0].Value.Text)
		assert.Equal(t, format.SpecUTF8String, syn.StringViews[0].Value.Specifier)

		require.NotNil(t, syn.Expand)
		require.Len(t, syn.Expand.Items, 1)
		first, ok := syn.Expand.Items[0].(*Item)
		require.True(t, ok)
		assert.Equal(t, "(_cells[((int)0)])", first.Value.Text)
	})

	t.Run("Index list", func(t *testing.T) {
		il, ok := items[2].(*IndexListItems)
		require.True(t, ok)
		require.Len(t, il.Sizes, 2)
		assert.Equal(t, "_rows != 0", il.Sizes[0].Condition.Expression)
		assert.Equal(t, "(_rows)", il.Sizes[0].Value.Text)
		assert.True(t, il.Sizes[1].Condition.IsZero())
		assert.Equal(t, "0", il.Sizes[1].Value.Text)
		require.Len(t, il.ValueNodes, 1)
		assert.NotContains(t, il.ValueNodes[0].Value.Text, "cell(")
		assert.Contains(t, il.ValueNodes[0].Value.Text, "_cells[")
	})

	t.Run("Array layout", func(t *testing.T) {
		arr, ok := items[3].(*ArrayItems)
		require.True(t, ok)
		assert.Equal(t, DirectionBackward, arr.Direction)
		require.NotNil(t, arr.Rank)
		assert.Equal(t, "2", arr.Rank.Text)
		require.NotNil(t, arr.LowerBound)
		assert.Equal(t, "1", arr.LowerBound.Text)
		assert.Equal(t, "_dims[$i]", arr.Sizes[0].Value.Text)
		assert.Equal(t, "_cells", arr.ValuePointers[0].Value.Text)
	})

	t.Run("Tree", func(t *testing.T) {
		tree, ok := items[4].(*TreeItems)
		require.True(t, ok)
		assert.Equal(t, "[tree]", tree.Name)
		require.NotNil(t, tree.Size)
		assert.Equal(t, "_count", tree.Size.Text)
		assert.Equal(t, "_root", tree.HeadPointer.Text)
		assert.Equal(t, "_left", tree.LeftPointer.Text)
		assert.Equal(t, "_right", tree.RightPointer.Text)
		assert.Equal(t, "_value", tree.ValueNode.Text)
	})
}

func TestParse_DisplayStringWhitespace(t *testing.T) {
	d, err := NewParser(logr.Discard(), Options{}).Parse(context.Background(), "w.natvis", doc(`
<Type Name="Padded"><DisplayString> x={x} </DisplayString></Type>
<Type Name="Wrapped">
  <DisplayString>
    size={_size}
    cap={_cap}
  </DisplayString>
</Type>`))
	require.NoError(t, err)
	entries := collect(t, d)
	require.Len(t, entries, 2)

	assert.Equal(t, " x={x} ", entries[0].Summaries[0].Value.String())
	segs := entries[0].Summaries[0].Value.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, " x=", segs[0].Literal)
	assert.Equal(t, " ", segs[1].Literal)

	assert.Equal(t, "size={_size} cap={_cap}", entries[1].Summaries[0].Value.String())
}

func TestParse_Priority(t *testing.T) {
	tests := []struct {
		name  string
		attr  string
		want  Priority
		valid bool
	}{
		{name: "Default", attr: "", want: PriorityMedium, valid: true},
		{name: "High", attr: ` Priority="High"`, want: PriorityHigh, valid: true},
		{name: "MediumLow", attr: ` Priority="MediumLow"`, want: PriorityMediumLow, valid: true},
		{name: "Bogus", attr: ` Priority="Bogus"`, valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewParser(logr.Discard(), Options{}).Parse(context.Background(), "p.natvis",
				doc(`<Type Name="T"`+tt.attr+`/><Type Name="Other"/>`))
			require.NoError(t, err)
			entries := collect(t, d)
			if !tt.valid {
				require.Len(t, entries, 1)
				assert.Equal(t, "Other", entries[0].Names[0].Raw)
				return
			}
			require.Len(t, entries, 2)
			assert.Equal(t, tt.want, entries[0].Priority)
		})
	}
}

func TestParse_InvalidAttributes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Bad alternative among pipes", body: `<Type Name="Good|Bad&lt;"/>`},
		{name: "Bad AlternativeType", body: `<Type Name="Good"><AlternativeType Name="::"/></Type>`},
		{name: "Boolean", body: `<Type Name="T" Inheritable="yes"/>`},
		{name: "Usage", body: `<Type Name="T"><SmartPointer Usage="Most">p</SmartPointer></Type>`},
		{name: "Duplicate smart pointer", body: `<Type Name="T"><SmartPointer>p</SmartPointer><SmartPointer>q</SmartPointer></Type>`},
		{name: "Unclosed placeholder", body: `<Type Name="T"><DisplayString>{x</DisplayString></Type>`},
		{name: "Else without If", body: `<Type Name="T"><Expand><CustomListItems><Else/></CustomListItems></Expand></Type>`},
		{name: "Duplicate NextPointer", body: `<Type Name="T"><Expand><LinkedListItems>
			<HeadPointer>h</HeadPointer><NextPointer>n</NextPointer><NextPointer>m</NextPointer><ValueNode>v</ValueNode>
		</LinkedListItems></Expand></Type>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs []string
			d, err := NewParser(captureLogger(&logs), Options{}).Parse(context.Background(), "a.natvis", doc(tt.body))
			require.NoError(t, err)
			assert.Empty(t, collect(t, d))
			assert.Equal(t, 1, d.Skipped())
			require.NotEmpty(t, logs)
		})
	}
}

func TestParse_OptionalElements(t *testing.T) {
	d, err := NewParser(logr.Discard(), Options{}).Parse(context.Background(), "o.natvis", doc(`
<Type Name="T">
  <DisplayString Optional="true">{x</DisplayString>
  <DisplayString>{y}</DisplayString>
  <Expand>
    <Item Name="a">a</Item>
    <CustomListItems Optional="1"><Else/></CustomListItems>
  </Expand>
</Type>`))
	require.NoError(t, err)
	entries := collect(t, d)
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Summaries, 1)
	assert.Equal(t, "{y}", entries[0].Summaries[0].Value.String())
	require.Len(t, entries[0].Expand.Items, 1)
}

func TestParse_Overloads(t *testing.T) {
	data := doc(`
<Intrinsic Name="get" Expression="v * 2" ReturnType="int"><Parameter Name="v" Type="int"/></Intrinsic>
<Intrinsic Name="get" Expression="v"><Parameter Name="v" Type="double"/></Intrinsic>
<Intrinsic Name="unused" Expression="0"/>
<Type Name="Box">
  <DisplayString>{get(x)}</DisplayString>
</Type>`)
	d, err := NewParser(logr.Discard(), Options{}).Parse(context.Background(), "o.natvis", data)
	require.NoError(t, err)
	require.Len(t, d.Key, 12)
	assert.Equal(t, DocumentKey(data), d.Key)
	macro := "__natvis_intrinsic_" + d.Key + "_g1_get_1"

	entries := collect(t, d)
	require.Len(t, entries, 1)
	var expr *format.Expression
	for e := range entries[0].Summaries[0].Value.Expressions() {
		expr = e
	}
	require.NotNil(t, expr)
	assert.Equal(t, macro+"(x)", expr.Text)

	defs := d.MacroDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "int "+macro+"(int v) { return (((int)v) * 2); }", defs[0].String())
	assert.Equal(t, "auto "+macro+"(double v) { return (((double)v)); }", defs[1].String())

	unused := d.UnusedIntrinsics()
	require.Len(t, unused, 1)
	assert.Equal(t, "unused", unused[0].Name)
}

func TestParse_MacroNamesPerDocument(t *testing.T) {
	overloads := func(factor string) []byte {
		return doc(`
<Intrinsic Name="get" Expression="v * ` + factor + `"><Parameter Name="v" Type="int"/></Intrinsic>
<Intrinsic Name="get" Expression="v"><Parameter Name="v" Type="double"/></Intrinsic>
<Type Name="Box"><DisplayString>{get(x)}</DisplayString></Type>`)
	}
	p := NewParser(logr.Discard(), Options{})
	parse := func(data []byte) []intrinsic.MacroDefinition {
		d, err := p.Parse(context.Background(), "m.natvis", data)
		require.NoError(t, err)
		collect(t, d)
		defs := d.MacroDefinitions()
		require.Len(t, defs, 2)
		return defs
	}

	first := parse(overloads("2"))
	second := parse(overloads("3"))
	assert.NotEqual(t, first[0].Name, second[0].Name)
	assert.Contains(t, first[0].String(), "* 2")
	assert.Contains(t, second[0].String(), "* 3")

	t.Run("Reloading keeps the names", func(t *testing.T) {
		again := parse(overloads("2"))
		assert.Equal(t, first[0].Name, again[0].Name)
	})
}

func TestParse_TypeIntrinsicsShadowGlobal(t *testing.T) {
	d, err := NewParser(logr.Discard(), Options{}).Parse(context.Background(), "s.natvis", doc(`
<Intrinsic Name="len" Expression="0"/>
<Type Name="A">
  <Intrinsic Name="len" Expression="_n"/>
  <DisplayString>{len()}</DisplayString>
</Type>
<Type Name="B">
  <DisplayString>{len()}</DisplayString>
</Type>`))
	require.NoError(t, err)
	entries := collect(t, d)
	require.Len(t, entries, 2)
	text := func(e *TypeEntry) string {
		for x := range e.Summaries[0].Value.Expressions() {
			return x.Text
		}
		return ""
	}
	assert.Equal(t, "(_n)", text(entries[0]))
	assert.Equal(t, "(0)", text(entries[1]))
}

func TestParse_DocumentErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "Malformed XML", data: []byte(`<AutoVisualizer><Type Name=Vec></Type></AutoVisualizer>`)},
		{name: "Wrong root", data: []byte("<Project/>"), want: ErrNotNatvis},
		{name: "Multiple roots", data: []byte("<AutoVisualizer/><Other/>"), want: ErrMalformed},
		{name: "Broken global intrinsic", data: doc(`<Intrinsic Name="f"/>`), want: ErrMissingAttr},
		{name: "Bad global boolean", data: doc(`<Intrinsic Name="f" Expression="1" Optional="maybe"/>`), want: ErrInvalidBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs []string
			d, err := NewParser(captureLogger(&logs), Options{}).Parse(context.Background(), "bad.natvis", tt.data)
			require.Error(t, err)
			assert.Nil(t, d)
			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "bad.natvis", perr.Path)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.NotEmpty(t, logs)

			logs = nil
			d, err = NewParser(captureLogger(&logs), Options{SuppressErrors: true}).Parse(context.Background(), "bad.natvis", tt.data)
			require.NoError(t, err)
			assert.Empty(t, collect(t, d))
			assert.Empty(t, d.MacroDefinitions())
			assert.NotEmpty(t, logs)
		})
	}
}

func TestDocument_TypesNotRestartable(t *testing.T) {
	d, err := NewParser(logr.Discard(), Options{}).Parse(context.Background(), "r.natvis", doc(`<Type Name="A"/><Type Name="B"/>`))
	require.NoError(t, err)

	var first []string
	for e := range d.Types(context.Background()) {
		first = append(first, e.Names[0].Raw)
		break
	}
	assert.Equal(t, []string{"A"}, first)
	assert.Empty(t, collect(t, d))
}

func TestParse_ValidateIntrinsics(t *testing.T) {
	opts := Options{ValidateIntrinsics: true}

	t.Run("Optional invalid intrinsic is dropped", func(t *testing.T) {
		d, err := NewParser(logr.Discard(), opts).Parse(context.Background(), "v.natvis", doc(`
<Intrinsic Name="ok" Expression="n + 1"><Parameter Name="n" Type="int"/></Intrinsic>
<Intrinsic Name="broken" Expression="n +" Optional="true"><Parameter Name="n" Type="int"/></Intrinsic>`))
		require.NoError(t, err)
		require.Equal(t, 1, d.Global().Len())
		assert.Len(t, d.Global().Lookup(intrinsic.MangledName{Name: "ok", Arity: 1}), 1)
	})

	t.Run("Invalid global intrinsic fails the document", func(t *testing.T) {
		_, err := NewParser(logr.Discard(), opts).Parse(context.Background(), "v.natvis", doc(`
<Intrinsic Name="broken" Expression="n +"><Parameter Name="n" Type="int"/></Intrinsic>`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidIntrinsic)
	})

	t.Run("Invalid type intrinsic fails the entry", func(t *testing.T) {
		d, err := NewParser(logr.Discard(), opts).Parse(context.Background(), "v.natvis", doc(`
<Type Name="A"><Intrinsic Name="broken" Expression="(("/></Type>
<Type Name="B"><Intrinsic Name="fine" Expression="$i * 2"/></Type>`))
		require.NoError(t, err)
		entries := collect(t, d)
		require.Len(t, entries, 1)
		assert.Equal(t, "B", entries[0].Names[0].Raw)
	})
}
