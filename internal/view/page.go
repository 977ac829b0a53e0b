package view

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Storefront</title>
</head>
<body>
<nav class="navbar">
  <form method="post" action="/intents" class="cart-btn">
    <input type="hidden" name="type" value="show_panel">
    <button type="submit">cart <span class="cart-items">{{.TotalItems}}</span></button>
  </form>
</nav>

<section class="products">
  <div class="products-center">
  {{- range .Products}}
    <article class="product">
      <div class="img-container">
        <img src="{{.Image}}" alt="Product" class="product-img">
        <form method="post" action="/intents">
          <input type="hidden" name="type" value="add">
          <input type="hidden" name="id" value="{{.ID}}">
          <button class="bag-btn" type="submit"{{if .Disabled}} disabled{{end}}>{{.ButtonLabel}}</button>
        </form>
      </div>
      <div class="description">
        <h3>{{.Title}}</h3>
        <h4>{{.Price}}</h4>
      </div>
    </article>
  {{- else}}
    <p class="empty">No products available.</p>
  {{- end}}
  </div>
</section>

<div class="cart-overlay{{if .PanelOpen}} transparentBcg{{end}}">
  <div class="cart{{if .PanelOpen}} showCart{{end}}">
    <form method="post" action="/intents" class="close-cart">
      <input type="hidden" name="type" value="hide_panel">
      <button type="submit">close</button>
    </form>
    <h2>your cart</h2>
    <div class="cart-content">
    {{- range .Lines}}
      <div class="cart-item">
        <img src="{{.Image}}" alt="Product">
        <div>
          <h4>{{.Title}}</h4>
          <h5>{{.Price}}</h5>
          <form method="post" action="/intents">
            <input type="hidden" name="type" value="remove">
            <input type="hidden" name="id" value="{{.ID}}">
            <button class="remove-item" type="submit">remove</button>
          </form>
        </div>
        <div>
          <form method="post" action="/intents">
            <input type="hidden" name="type" value="increment">
            <input type="hidden" name="id" value="{{.ID}}">
            <button type="submit">&#9650;</button>
          </form>
          <p class="item-amount">{{.Amount}}</p>
          <form method="post" action="/intents">
            <input type="hidden" name="type" value="decrement">
            <input type="hidden" name="id" value="{{.ID}}">
            <button type="submit">&#9660;</button>
          </form>
        </div>
      </div>
    {{- end}}
    </div>
    <div class="cart-footer">
      <h3>your total: <span class="cart-total">{{.TotalPrice}}</span></h3>
      <form method="post" action="/intents">
        <input type="hidden" name="type" value="clear">
        <button class="clear-cart" type="submit">clear cart</button>
      </form>
    </div>
  </div>
</div>
</body>
</html>
`
