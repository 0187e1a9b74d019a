package parse

import "testing"

func bindSource(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(src, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Bind(doc, BindOptions{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return doc
}

func TestBareTalPrefixRecognizedWithoutXmlns(t *testing.T) {
	doc := bindSource(t, `<p tal:content="x">kept</p>`)
	if len(doc.Root.Statements) != 1 {
		t.Fatalf("got %d statements, want 1", len(doc.Root.Statements))
	}
	if doc.Root.Statements[0].Kind != StmtContent {
		t.Fatalf("got kind %v", doc.Root.Statements[0].Kind)
	}
}

func TestStatementOrderIsCanonicalRegardlessOfSourceOrder(t *testing.T) {
	doc := bindSource(t, `<p tal:attributes="class x" tal:content="y" tal:define="x 1" tal:condition="y">t</p>`)
	stmts := doc.Root.Statements
	for i := 1; i < len(stmts); i++ {
		oi, _ := stmts[i-1].Kind.Order()
		oj, _ := stmts[i].Kind.Order()
		if oi > oj {
			t.Fatalf("statements not canonically ordered: %v", stmts)
		}
	}
	if stmts[0].Kind != StmtDefine {
		t.Fatalf("expected define first, got %v", stmts[0].Kind)
	}
}

func TestDataAttributeSurfaceRequiresOptIn(t *testing.T) {
	doc, err := Parse(`<p data-tal-content="x">kept</p>`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Bind(doc, BindOptions{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(doc.Root.Statements) != 0 {
		t.Fatalf("expected data-tal-* to be inert without EnableDataAttributes, got %v", doc.Root.Statements)
	}

	doc = bindSourceWithOpts(t, `<p data-tal-content="x">kept</p>`, BindOptions{EnableDataAttributes: true})
	if len(doc.Root.Statements) != 1 || doc.Root.Statements[0].Kind != StmtContent {
		t.Fatalf("expected data-tal-content to bind as content, got %v", doc.Root.Statements)
	}
}

func bindSourceWithOpts(t *testing.T, src string, opts BindOptions) *Document {
	t.Helper()
	doc, err := Parse(src, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := Bind(doc, opts); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return doc
}

func TestRestrictedNamespaceRejectsUnknownPrefix(t *testing.T) {
	doc, err := Parse(`<p unknown:foo="x">kept</p>`, Options{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	err = Bind(doc, BindOptions{RestrictedNamespace: true})
	if err == nil {
		t.Fatal("expected a LanguageError for an unrecognized namespace prefix")
	}
}
